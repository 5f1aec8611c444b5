package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nbenliogludev/webagent/internal/action"
	"github.com/nbenliogludev/webagent/internal/browser"
	"github.com/nbenliogludev/webagent/internal/llm"
)

// PageObserver captures the current page. *browser.Observer implements it.
type PageObserver interface {
	Observe(ctx context.Context, s browser.Session) (*browser.Observation, error)
}

type Options struct {
	HistoryWindow    int
	RateLimitRetries int
	RateLimitBackoff time.Duration
	// MaxSteps of 0 runs until the model answers.
	MaxSteps int
	// ObserveFirst captures the page before the first request, for runs that
	// start on an already opened page.
	ObserveFirst bool
	Parser       action.Parser
}

func DefaultOptions() Options {
	return Options{
		HistoryWindow:    4,
		RateLimitRetries: 2,
		RateLimitBackoff: 120 * time.Second,
	}
}

// Agent drives one browser session. It is not safe for concurrent use: a
// single step is in flight at any time.
type Agent struct {
	session  browser.Session
	observer PageObserver
	llm      llm.Client
	executor *Executor
	opts     Options
	logger   *zap.Logger

	interrupted func() bool
	// newTimer overrides the backoff wait timer; nil uses real time.
	newTimer func() backoff.Timer
}

func NewAgent(s browser.Session, o PageObserver, c llm.Client, e *Executor, opts Options, logger *zap.Logger) *Agent {
	return &Agent{
		session:  s,
		observer: o,
		llm:      c,
		executor: e,
		opts:     opts,
		logger:   logger.Named("agent"),
	}
}

// WithInterrupt makes the loop stop with ErrInterrupted when fn reports true
// at the start of a step.
func (a *Agent) WithInterrupt(fn func() bool) *Agent {
	a.interrupted = fn
	return a
}

// Run executes instruction until the model produces a final answer, which is
// returned. Timeouts, unknown element ids, malformed actions and failed
// observations are reported to the model and the loop continues; every other
// error ends the run.
func (a *Agent) Run(ctx context.Context, instruction string) (answer string, err error) {
	logger := a.logger.With(zap.String("run_id", uuid.NewString()))
	reporter := NewReporter(logger, instruction)
	start := time.Now()
	ran := 0
	defer func() { reporter.Finish(start, ran, err) }()

	logger.Info("run started", zap.String("instruction", instruction))

	conv := NewConversation(llm.SystemPrompt, a.opts.HistoryWindow)
	conv.Append(llm.RoleUser, instruction)

	var current *browser.Observation
	if a.opts.ObserveFirst {
		if current, err = a.observe(ctx, conv, reporter, 0); err != nil {
			return "", err
		}
	}

	for step := 1; ; step++ {
		if a.opts.MaxSteps > 0 && step > a.opts.MaxSteps {
			return "", ErrMaxSteps
		}
		if a.interrupted != nil && a.interrupted() {
			return "", ErrInterrupted
		}
		ran = step

		reply, err := a.request(ctx, logger, conv.Snapshot())
		if err != nil {
			return "", err
		}
		conv.Append(llm.RoleAssistant, reply)
		conv.Truncate()
		logger.Debug("model reply", zap.Int("step", step), zap.String("reply", reply))

		act, err := a.opts.Parser.Parse(reply)
		if err != nil {
			a.recoverStep(conv, reporter, step, "MalformedAction", err)
			continue
		}
		reporter.LogDecision(step, urlOf(current), act)

		if final, ok := act.(action.FinalAnswer); ok {
			return final.Text, nil
		}

		if err := a.executor.Execute(ctx, a.session, act, current.ElementLocators()); err != nil {
			var unknown *UnknownElementError
			switch {
			case errors.Is(err, browser.ErrTimeout):
				a.recoverStep(conv, reporter, step, "TimeoutError", err)
				continue
			case errors.As(err, &unknown):
				a.recoverStep(conv, reporter, step, "UnknownElementId", err)
				continue
			default:
				return "", fmt.Errorf("step %d: %s: %w", step, act, err)
			}
		}

		if current, err = a.observe(ctx, conv, reporter, step); err != nil {
			return "", err
		}
	}
}

// request calls the model, retrying the same messages while it is rate
// limited on a constant schedule.
func (a *Agent) request(ctx context.Context, logger *zap.Logger, messages []llm.Message) (string, error) {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(a.opts.RateLimitBackoff), uint64(a.opts.RateLimitRetries)),
		ctx,
	)

	attempts := 0
	op := func() (string, error) {
		attempts++
		reply, err := a.llm.Complete(ctx, messages)
		if err != nil && !errors.Is(err, llm.ErrRateLimited) {
			return "", backoff.Permanent(err)
		}
		return reply, err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("rate limit exceeded, retrying",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", a.opts.RateLimitRetries+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	var timer backoff.Timer
	if a.newTimer != nil {
		timer = a.newTimer()
	}

	reply, err := backoff.RetryNotifyWithTimerAndData(op, b, notify, timer)
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			return "", fmt.Errorf("%w after %d attempts: %w", ErrModelUnavailable, attempts, err)
		}
		return "", fmt.Errorf("llm error: %w", err)
	}
	return reply, nil
}

// observe refreshes the page state. A failed observation leaves no current
// observation, so ids from the previous page cannot be resolved any more.
// Only context errors are returned.
func (a *Agent) observe(ctx context.Context, conv *Conversation, reporter *Reporter, step int) (*browser.Observation, error) {
	obs, err := a.observer.Observe(ctx, a.session)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.recoverStep(conv, reporter, step, "ObservationFailure", err)
		return nil, nil
	}
	conv.Observe(obs)
	return obs, nil
}

func (a *Agent) recoverStep(conv *Conversation, reporter *Reporter, step int, kind string, err error) {
	note := fmt.Sprintf("%s occurred: %v", kind, err)
	conv.Append(llm.RoleAssistant, note)
	reporter.Note(step, note)
}

func urlOf(o *browser.Observation) string {
	if o == nil {
		return ""
	}
	return o.URL
}
