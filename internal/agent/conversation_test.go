package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/webagent/internal/llm"
)

func countImages(msgs []llm.Message) int {
	n := 0
	for _, m := range msgs {
		if m.HasImage() {
			n++
		}
	}
	return n
}

func TestConversation_SystemFirst(t *testing.T) {
	c := NewConversation("be helpful", 4)
	c.Append(llm.RoleUser, "go to example.com")

	msgs := c.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Text: "be helpful"}, msgs[0])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Text: "go to example.com"}, msgs[1])
}

func TestConversation_ObservationSentOnce(t *testing.T) {
	c := NewConversation("sys", 4)
	c.Append(llm.RoleUser, "find the price")
	c.Observe(page("https://example.com", "[$1] button Buy now", 1))
	assert.True(t, c.Pending())

	first := c.Snapshot()
	assert.False(t, c.Pending())
	last := first[len(first)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.True(t, last.HasImage())
	assert.Equal(t, "anBlZw==", last.ImageBase64)
	assert.Contains(t, last.Text, "[$1] button Buy now")
	assert.Equal(t, 1, countImages(first))

	second := c.Snapshot()
	assert.Equal(t, first, second)
	assert.Equal(t, 1, countImages(second))
}

func TestConversation_PendingIsReplacedNotQueued(t *testing.T) {
	c := NewConversation("sys", 4)
	c.Observe(page("https://a.example", "page A"))
	c.Observe(page("https://b.example", "page B"))

	msgs := c.Snapshot()
	require.Equal(t, 1, countImages(msgs))
	assert.Contains(t, msgs[len(msgs)-1].Text, "page B")
	assert.NotContains(t, msgs[len(msgs)-1].Text, "page A")
}

func TestConversation_TruncateBound(t *testing.T) {
	for n := 0; n <= 20; n++ {
		t.Run(fmt.Sprintf("history=%d", n), func(t *testing.T) {
			c := NewConversation("sys", 4)
			for i := 0; i < n; i++ {
				c.Append(llm.RoleAssistant, fmt.Sprintf("m%d", i))
			}
			c.Truncate()

			msgs := c.Snapshot()
			assert.LessOrEqual(t, len(msgs), 5)
			assert.Equal(t, llm.RoleSystem, msgs[0].Role)
			if n >= 4 {
				require.Len(t, msgs, 5)
				assert.Equal(t, fmt.Sprintf("m%d", n-1), msgs[4].Text)
				assert.Equal(t, fmt.Sprintf("m%d", n-4), msgs[1].Text)
			} else {
				assert.Len(t, msgs, n+1)
			}
		})
	}
}

func TestConversation_TruncateIndependentOfPending(t *testing.T) {
	c := NewConversation("sys", 2)
	c.Append(llm.RoleUser, "a")
	c.Append(llm.RoleUser, "b")
	c.Append(llm.RoleUser, "c")
	c.Observe(page("https://example.com", "pending page"))

	c.Truncate()
	assert.True(t, c.Pending(), "truncation must not drop the pending observation")
	assert.Equal(t, 3, c.Len())

	msgs := c.Snapshot()
	assert.Equal(t, []string{"sys", "b", "c"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})
	assert.True(t, msgs[3].HasImage())
}
