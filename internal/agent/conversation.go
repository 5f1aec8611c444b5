package agent

import (
	"fmt"

	"github.com/nbenliogludev/webagent/internal/browser"
	"github.com/nbenliogludev/webagent/internal/llm"
)

// Conversation owns the messages sent to the model. The system message is
// always first and never evicted. Two independent policies apply: history is
// cut to a trailing window on Truncate, and at most one observation is
// pending until the next Snapshot sends it.
type Conversation struct {
	system  llm.Message
	history []llm.Message
	window  int

	// instructions are repeated in every observation message.
	instructions string
	pending      *browser.Observation
}

func NewConversation(systemPrompt string, window int) *Conversation {
	if window <= 0 {
		window = 4
	}
	return &Conversation{
		system:       llm.Message{Role: llm.RoleSystem, Text: systemPrompt},
		window:       window,
		instructions: systemPrompt,
	}
}

func (c *Conversation) Append(role llm.Role, text string) {
	c.history = append(c.history, llm.Message{Role: role, Text: text})
}

// Observe marks obs as the observation to send with the next Snapshot. An
// unsent observation is replaced, never queued.
func (c *Conversation) Observe(obs *browser.Observation) {
	c.pending = obs
}

// Pending reports whether an observation is waiting to be sent.
func (c *Conversation) Pending() bool {
	return c.pending != nil
}

// Snapshot returns the messages for the next request. A pending observation
// becomes a text-with-image user message at the end of history and is cleared.
func (c *Conversation) Snapshot() []llm.Message {
	if c.pending != nil {
		c.history = append(c.history, llm.Message{
			Role:        llm.RoleUser,
			Text:        fmt.Sprintf(llm.ObservationPrompt, c.instructions, c.pending.Text),
			ImageBase64: c.pending.ScreenshotBase64(),
		})
		c.pending = nil
	}

	out := make([]llm.Message, 0, len(c.history)+1)
	out = append(out, c.system)
	return append(out, c.history...)
}

// Truncate keeps the system message plus the last window messages. Older
// context is lost on purpose: the agent has no memory of actions taken more
// than a couple of steps ago.
func (c *Conversation) Truncate() {
	if len(c.history) <= c.window {
		return
	}
	kept := make([]llm.Message, c.window)
	copy(kept, c.history[len(c.history)-c.window:])
	c.history = kept
}

// Len is the number of messages including the system message.
func (c *Conversation) Len() int {
	return len(c.history) + 1
}
