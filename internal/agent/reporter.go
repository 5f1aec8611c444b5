package agent

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/webagent/internal/action"
)

// Reporter keeps a trace of every decision for the end-of-run report.
type Reporter struct {
	logger      *zap.Logger
	instruction string
	trace       []string
}

func NewReporter(logger *zap.Logger, instruction string) *Reporter {
	return &Reporter{logger: logger, instruction: instruction}
}

func (r *Reporter) LogDecision(step int, url string, act action.Action) {
	r.logger.Info("decision",
		zap.Int("step", step),
		zap.String("url", url),
		zap.Stringer("action", act),
	)
	r.trace = append(r.trace, fmt.Sprintf("STEP %d | URL=%s | ACTION=%s", step, url, act))
}

func (r *Reporter) Note(step int, note string) {
	r.logger.Warn("recoverable step error", zap.Int("step", step), zap.String("note", note))
	r.trace = append(r.trace, fmt.Sprintf("STEP %d | NOTE=%s", step, note))
}

// Finish logs the exit report. err is nil for a final answer.
func (r *Reporter) Finish(start time.Time, steps int, err error) {
	fields := []zap.Field{
		zap.String("instruction", r.instruction),
		zap.Duration("duration", time.Since(start).Truncate(time.Millisecond)),
		zap.Int("steps", steps),
		zap.String("exit_reason", humanizeReason(err)),
		zap.Strings("trace", r.trace),
	}
	if err != nil {
		r.logger.Error("run finished with error", append(fields, zap.Error(err))...)
		return
	}
	r.logger.Info("run finished", fields...)
}

// Trace returns a copy of the recorded lines.
func (r *Reporter) Trace() []string {
	out := make([]string, len(r.trace))
	copy(out, r.trace)
	return out
}
