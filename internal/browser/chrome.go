package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

type ChromeOptions struct {
	Headless       bool
	UserDataDir    string
	ViewportWidth  int
	ViewportHeight int
	// NoSandbox is needed when Chrome runs as root, typically in containers.
	NoSandbox bool
	// Timeout bounds every single CDP round trip.
	Timeout time.Duration
}

// ChromeSession is the chromedp-backed Session.
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      *zap.Logger
}

var _ Session = (*ChromeSession)(nil)

func NewChromeSession(opts ChromeOptions, logger *zap.Logger) (*ChromeSession, error) {
	logger = logger.Named("chromedp")

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// First Run starts the browser process.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome failed: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger.Info("browser started", zap.Bool("headless", opts.Headless))

	return &ChromeSession{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

func (s *ChromeSession) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}

// run executes actions on the browser context, bounded by the session timeout
// and by the caller's ctx.
func (s *ChromeSession) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, "navigate", chromedp.Navigate(url))
}

func (s *ChromeSession) QueryAll(ctx context.Context, locator Locator) ([]Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, "query selector",
		chromedp.Nodes(string(locator), &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	); err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, chromeElement{session: s, node: n})
	}
	return out, nil
}

func (s *ChromeSession) PressKey(ctx context.Context, key string) error {
	return s.run(ctx, "keyboard press", chromedp.KeyEvent(keyCode(key)))
}

func (s *ChromeSession) Back(ctx context.Context) error {
	return s.run(ctx, "go back", chromedp.NavigateBack())
}

func (s *ChromeSession) Forward(ctx context.Context) error {
	return s.run(ctx, "go forward", chromedp.NavigateForward())
}

func (s *ChromeSession) Reload(ctx context.Context) error {
	return s.run(ctx, "reload", chromedp.Reload())
}

func (s *ChromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, "screenshot", chromedp.FullScreenshot(&buf, 70)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *ChromeSession) Evaluate(ctx context.Context, expression string, out any) error {
	return s.run(ctx, "js evaluation", chromedp.Evaluate(expression, out))
}

func (s *ChromeSession) URL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, "location", chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

type chromeElement struct {
	session *ChromeSession
	node    *cdp.Node
}

func (e chromeElement) Click(ctx context.Context) error {
	return e.session.run(ctx, "click", chromedp.MouseClickNode(e.node))
}

func (e chromeElement) Type(ctx context.Context, text string) error {
	return e.session.run(ctx, "type",
		chromedp.SendKeys([]cdp.NodeID{e.node.NodeID}, text, chromedp.ByNodeID),
	)
}

// playwrightKeys maps the Playwright key names the model is told to use onto
// the key codes chromedp dispatches.
var playwrightKeys = map[string]string{
	"Enter":      kb.Enter,
	"Tab":        kb.Tab,
	"Escape":     kb.Escape,
	"Backspace":  kb.Backspace,
	"Delete":     kb.Delete,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"PageUp":     kb.PageUp,
	"PageDown":   kb.PageDown,
	"Home":       kb.Home,
	"End":        kb.End,
	"Space":      " ",
}

// keyCode falls back to the literal key, which chromedp types as text.
func keyCode(key string) string {
	if code, ok := playwrightKeys[key]; ok {
		return code
	}
	return key
}
