package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nbenliogludev/webagent/internal/action"
	"github.com/nbenliogludev/webagent/internal/browser"
)

func newTestExecutor(t *testing.T) (*Executor, *fakeTracker) {
	tr := &fakeTracker{}
	return NewExecutor(tr, zaptest.NewLogger(t)), tr
}

func TestExecute_ClickUsesFirstMatch(t *testing.T) {
	e, _ := newTestExecutor(t)
	s := newFakeSession()
	s.matches[browser.LocatorForID(7)] = 3

	err := e.Execute(context.Background(), s, action.Click{ID: 7}, page("", "", 7).Locators)
	require.NoError(t, err)
	assert.Equal(t, []string{`query [data-ai-id="7"]`, "click #0"}, s.calls)
}

func TestExecute_InputTypesIntoFirstMatch(t *testing.T) {
	e, _ := newTestExecutor(t)
	s := newFakeSession()
	s.matches[browser.LocatorForID(2)] = 2

	err := e.Execute(context.Background(), s, action.Input{ID: 2, Text: "margherita"}, page("", "", 2).Locators)
	require.NoError(t, err)
	assert.Equal(t, []string{`query [data-ai-id="2"]`, `type #0 "margherita"`}, s.calls)
}

func TestExecute_NoMatchIsSuccess(t *testing.T) {
	e, _ := newTestExecutor(t)
	s := newFakeSession()

	err := e.Execute(context.Background(), s, action.Click{ID: 4}, page("", "", 4).Locators)
	require.NoError(t, err)
	assert.Equal(t, []string{`query [data-ai-id="4"]`}, s.calls)
}

func TestExecute_UnknownID(t *testing.T) {
	e, _ := newTestExecutor(t)
	s := newFakeSession()

	for _, locs := range []browser.Locators{page("", "", 1, 2).Locators, nil} {
		err := e.Execute(context.Background(), s, action.Click{ID: 9}, locs)
		var unknown *UnknownElementError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, 9, unknown.ID)
	}
	assert.Empty(t, s.calls, "an unknown id must not touch the page")
}

func TestExecute_Navigation(t *testing.T) {
	tests := []struct {
		name string
		act  action.Action
		want string
	}{
		{"navigate", action.Navigate{URL: "https://example.com"}, "navigate https://example.com"},
		{"key", action.KeyPress{Key: "Enter"}, "key Enter"},
		{"back", action.History{Direction: action.Back}, "back"},
		{"forward", action.History{Direction: action.Forward}, "forward"},
		{"reload", action.History{Direction: action.Reload}, "reload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestExecutor(t)
			s := newFakeSession()
			require.NoError(t, e.Execute(context.Background(), s, tt.act, nil))
			assert.Equal(t, []string{tt.want}, s.calls)
		})
	}
}

func TestExecute_UnknownDirection(t *testing.T) {
	e, _ := newTestExecutor(t)
	err := e.Execute(context.Background(), newFakeSession(), action.History{Direction: "sideways"}, nil)
	assert.ErrorContains(t, err, "sideways")
}

func TestExecute_NavigateErrorPropagates(t *testing.T) {
	e, _ := newTestExecutor(t)
	s := newFakeSession()
	s.navErr = browser.ErrTimeout

	err := e.Execute(context.Background(), s, action.Navigate{URL: "https://slow.example"}, nil)
	assert.ErrorIs(t, err, browser.ErrTimeout)
}

func TestExecute_Reachouts(t *testing.T) {
	r := action.Reachout{Email: "jane@example.com", Keyword: "go", Question: "open to roles?", Name: "Jane"}

	e, tr := newTestExecutor(t)
	s := newFakeSession()
	require.NoError(t, e.Execute(context.Background(), s, action.RecordReachout{Reachout: r}, nil))
	require.NoError(t, e.Execute(context.Background(), s, action.DeleteReachout{Reachout: r}, nil))
	require.NoError(t, e.Execute(context.Background(), s, action.RecordResponse{Reachout: r, Response: "yes"}, nil))

	assert.Equal(t, []trackerCall{
		{op: "record reachout", reachout: r},
		{op: "delete reachout", reachout: r},
		{op: "record response", reachout: r, response: "yes"},
	}, tr.calls)
	assert.Empty(t, s.calls)
}

func TestExecute_TrackingFailuresAreSwallowed(t *testing.T) {
	e, tr := newTestExecutor(t)
	tr.err = errors.New("connection refused")

	err := e.Execute(context.Background(), newFakeSession(), action.RecordReachout{Reachout: action.Reachout{Name: "Jane"}}, nil)
	assert.NoError(t, err)
	assert.Len(t, tr.calls, 1)
}
