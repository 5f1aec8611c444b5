package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

type ManagerOptions struct {
	Headless          bool
	UserDataDir       string
	ViewportWidth     int
	ViewportHeight    int
	DefaultTimeout    time.Duration
	NavigationTimeout time.Duration
}

// Manager is the playwright-backed Session: one persistent Chromium context
// with a single page.
type Manager struct {
	pw      *playwright.Playwright
	Context playwright.BrowserContext
	Page    playwright.Page
	logger  *zap.Logger
}

var _ Session = (*Manager)(nil)

func NewManager(opts ManagerOptions, logger *zap.Logger) (*Manager, error) {
	logger = logger.Named("playwright")

	if err := playwright.Install(); err != nil {
		return nil, fmt.Errorf("install pw failed: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	userDataDir := opts.UserDataDir
	if !filepath.IsAbs(userDataDir) {
		wd, _ := os.Getwd()
		userDataDir = filepath.Join(wd, userDataDir)
	}

	launch := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		launch.Viewport = &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight}
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(userDataDir, launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium failed: %w", err)
	}

	var page playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = bctx.NewPage()
		if err != nil {
			_ = bctx.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	if opts.DefaultTimeout > 0 {
		page.SetDefaultTimeout(float64(opts.DefaultTimeout.Milliseconds()))
	}
	if opts.NavigationTimeout > 0 {
		page.SetDefaultNavigationTimeout(float64(opts.NavigationTimeout.Milliseconds()))
	}

	logger.Info("browser started",
		zap.Bool("headless", opts.Headless),
		zap.String("user_data_dir", userDataDir),
	)

	return &Manager{
		pw:      pw,
		Context: bctx,
		Page:    page,
		logger:  logger,
	}, nil
}

func (m *Manager) Close() error {
	var errs []error
	if m.Context != nil {
		errs = append(errs, m.Context.Close())
	}
	if m.pw != nil {
		errs = append(errs, m.pw.Stop())
	}
	return errors.Join(errs...)
}

func (m *Manager) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.Page.Goto(url)
	return wrapPlaywright("goto", err)
}

func (m *Manager) QueryAll(ctx context.Context, locator Locator) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := m.Page.QuerySelectorAll(string(locator))
	if err != nil {
		return nil, wrapPlaywright("query selector", err)
	}
	out := make([]Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, pwElement{handle: h})
	}
	return out, nil
}

func (m *Manager) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapPlaywright("keyboard press", m.Page.Keyboard().Press(key))
}

func (m *Manager) Back(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.Page.GoBack()
	return wrapPlaywright("go back", err)
}

func (m *Manager) Forward(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.Page.GoForward()
	return wrapPlaywright("go forward", err)
}

func (m *Manager) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.Page.Reload()
	return wrapPlaywright("reload", err)
}

func (m *Manager) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := m.Page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypeJpeg,
		Quality:  playwright.Int(70),
	})
	if err != nil {
		return nil, wrapPlaywright("screenshot", err)
	}
	return buf, nil
}

func (m *Manager) Evaluate(ctx context.Context, expression string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := m.Page.Evaluate(expression)
	if err != nil {
		return wrapPlaywright("js evaluation", err)
	}
	// playwright hands back generic maps and slices; round-trip through JSON
	// to decode into the caller's type.
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode js result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode js result: %w", err)
	}
	return nil
}

func (m *Manager) URL(ctx context.Context) (string, error) {
	return m.Page.URL(), nil
}

type pwElement struct {
	handle playwright.ElementHandle
}

func (e pwElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapPlaywright("click", e.handle.Click())
}

func (e pwElement) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapPlaywright("type", e.handle.Type(text))
}

func wrapPlaywright(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
