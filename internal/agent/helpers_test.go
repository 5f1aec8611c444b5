package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/nbenliogludev/webagent/internal/action"
	"github.com/nbenliogludev/webagent/internal/browser"
	"github.com/nbenliogludev/webagent/internal/llm"
	"github.com/nbenliogludev/webagent/internal/tracking"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSession records every browser call in order.
type fakeSession struct {
	calls    []string
	matches  map[browser.Locator]int
	elements []*fakeElement
	navErr   error
	url      string
}

func newFakeSession() *fakeSession {
	return &fakeSession{matches: map[browser.Locator]int{}}
}

func (s *fakeSession) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.record("navigate %s", url)
	if s.navErr != nil {
		return s.navErr
	}
	s.url = url
	return nil
}

func (s *fakeSession) QueryAll(_ context.Context, loc browser.Locator) ([]browser.Element, error) {
	s.record("query %s", loc)
	n := s.matches[loc]
	out := make([]browser.Element, 0, n)
	for i := 0; i < n; i++ {
		el := &fakeElement{session: s, index: i}
		s.elements = append(s.elements, el)
		out = append(out, el)
	}
	return out, nil
}

func (s *fakeSession) PressKey(_ context.Context, key string) error {
	s.record("key %s", key)
	return nil
}

func (s *fakeSession) Back(context.Context) error    { s.record("back"); return nil }
func (s *fakeSession) Forward(context.Context) error { s.record("forward"); return nil }
func (s *fakeSession) Reload(context.Context) error  { s.record("reload"); return nil }
func (s *fakeSession) Close() error                  { return nil }

func (s *fakeSession) Screenshot(context.Context) ([]byte, error) {
	return []byte("jpeg"), nil
}

func (s *fakeSession) Evaluate(context.Context, string, any) error {
	return errors.New("not supported by fake")
}

func (s *fakeSession) URL(context.Context) (string, error) { return s.url, nil }

type fakeElement struct {
	session *fakeSession
	index   int
}

func (e *fakeElement) Click(context.Context) error {
	e.session.record("click #%d", e.index)
	return nil
}

func (e *fakeElement) Type(_ context.Context, text string) error {
	e.session.record("type #%d %q", e.index, text)
	return nil
}

// fakeObserver hands out scripted observations; when they run out it repeats
// a default page.
type fakeObserver struct {
	calls   int
	results []observeResult
}

type observeResult struct {
	obs *browser.Observation
	err error
}

func (o *fakeObserver) Observe(_ context.Context, s browser.Session) (*browser.Observation, error) {
	o.calls++
	if len(o.results) > 0 {
		r := o.results[0]
		o.results = o.results[1:]
		return r.obs, r.err
	}
	url, _ := s.URL(context.Background())
	return page(url, "plain page", 1), nil
}

func page(url, text string, ids ...int) *browser.Observation {
	locs := browser.Locators{}
	for _, id := range ids {
		locs[id] = browser.LocatorForID(id)
	}
	return &browser.Observation{URL: url, Screenshot: []byte("jpeg"), Text: text, Locators: locs}
}

// scriptedLLM returns replies (or errors) in order and keeps every request.
type scriptedLLM struct {
	steps    []llmStep
	requests [][]llm.Message
}

type llmStep struct {
	reply string
	err   error
}

func (c *scriptedLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	c.requests = append(c.requests, snapshot)

	if len(c.steps) == 0 {
		return "", errors.New("script exhausted")
	}
	s := c.steps[0]
	c.steps = c.steps[1:]
	return s.reply, s.err
}

func reply(text string) llmStep { return llmStep{reply: text} }

func rateLimited() llmStep {
	return llmStep{err: fmt.Errorf("%w: 429 too many requests", llm.ErrRateLimited)}
}

// recordingTimer fires immediately and remembers every requested wait.
type recordingTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (t *recordingTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time { return t.c }

type trackerCall struct {
	op       string
	reachout action.Reachout
	response string
}

type fakeTracker struct {
	calls []trackerCall
	err   error
}

func (f *fakeTracker) RecordReachout(_ context.Context, r action.Reachout) (tracking.Result, error) {
	f.calls = append(f.calls, trackerCall{op: "record reachout", reachout: r})
	return tracking.Result{Code: 200}, f.err
}

func (f *fakeTracker) DeleteReachout(_ context.Context, r action.Reachout) (tracking.Result, error) {
	f.calls = append(f.calls, trackerCall{op: "delete reachout", reachout: r})
	return tracking.Result{Code: 200}, f.err
}

func (f *fakeTracker) RecordResponse(_ context.Context, r action.Reachout, response string) (tracking.Result, error) {
	f.calls = append(f.calls, trackerCall{op: "record response", reachout: r, response: response})
	return tracking.Result{Code: 200}, f.err
}
