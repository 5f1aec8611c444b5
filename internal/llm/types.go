package llm

import (
	"context"
	"errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrRateLimited is returned (wrapped) when the provider rejects a request
// because of rate limits. Callers may retry the same request.
var ErrRateLimited = errors.New("llm rate limited")

// Message is one entry of the conversation sent to the model. ImageBase64 is
// set only for text-with-image messages and holds a base64 JPEG.
type Message struct {
	Role        Role
	Text        string
	ImageBase64 string
}

// HasImage reports whether the message carries a screenshot.
func (m Message) HasImage() bool {
	return m.ImageBase64 != ""
}

type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
