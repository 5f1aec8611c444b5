package browser

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
)

type ObserverOptions struct {
	// SettleDelay is waited before capturing so late page updates land.
	SettleDelay time.Duration
	// ScreenshotPath and TextPath, when set, receive a copy of every
	// observation. They are overwritten on each call.
	ScreenshotPath string
	TextPath       string
}

// Observer captures Observations from a Session. It does not retry.
type Observer struct {
	renderer Renderer
	opts     ObserverOptions
	logger   *zap.Logger
}

func NewObserver(r Renderer, opts ObserverOptions, logger *zap.Logger) *Observer {
	return &Observer{renderer: r, opts: opts, logger: logger.Named("observer")}
}

// Observe waits for the page to settle, renders it and takes a screenshot.
// Failures are returned as *ObservationError.
func (o *Observer) Observe(ctx context.Context, s Session) (*Observation, error) {
	if o.opts.SettleDelay > 0 {
		t := time.NewTimer(o.opts.SettleDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, &ObservationError{Stage: "settle", Err: ctx.Err()}
		case <-t.C:
		}
	}

	o.logger.Debug("rendering page text")
	text, locators, err := o.renderer.Render(ctx, s)
	if err != nil {
		return nil, &ObservationError{Stage: "render", Err: err}
	}

	o.logger.Debug("taking screenshot")
	shot, err := s.Screenshot(ctx)
	if err != nil {
		return nil, &ObservationError{Stage: "screenshot", Err: err}
	}

	// Both artifacts are written together so they always describe one page.
	o.persist(o.opts.TextPath, []byte(text))
	o.persist(o.opts.ScreenshotPath, shot)

	url, err := s.URL(ctx)
	if err != nil {
		o.logger.Warn("failed to read page url", zap.Error(err))
	}

	o.logger.Info("page observed",
		zap.String("url", url),
		zap.Int("elements", len(locators)),
		zap.Int("text_bytes", len(text)),
	)

	return &Observation{
		URL:        url,
		Screenshot: shot,
		Text:       text,
		Locators:   locators,
	}, nil
}

func (o *Observer) persist(path string, data []byte) {
	if path == "" {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		o.logger.Warn("failed to write observation artifact", zap.String("path", path), zap.Error(err))
	}
}
