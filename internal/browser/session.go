package browser

import (
	"context"
	"errors"
)

// ErrTimeout is wrapped into any error caused by a browser operation running
// out of time, regardless of the engine.
var ErrTimeout = errors.New("browser timeout")

// Session is the live page driven by the agent. Implementations are not safe
// for concurrent use; the agent loop owns the session exclusively.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// QueryAll returns every element matching locator, possibly none.
	QueryAll(ctx context.Context, locator Locator) ([]Element, error)
	PressKey(ctx context.Context, key string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Reload(ctx context.Context) error
	// Screenshot captures the full page as JPEG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Evaluate runs a JS expression in the page and decodes its JSON result into out.
	Evaluate(ctx context.Context, expression string, out any) error
	URL(ctx context.Context) (string, error)
	Close() error
}

type Element interface {
	Click(ctx context.Context) error
	Type(ctx context.Context, text string) error
}
