package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nbenliogludev/webagent/internal/action"
	"github.com/nbenliogludev/webagent/internal/browser"
	"github.com/nbenliogludev/webagent/internal/tracking"
)

// Tracker records reachout side effects. *tracking.Client implements it.
type Tracker interface {
	RecordReachout(ctx context.Context, r action.Reachout) (tracking.Result, error)
	DeleteReachout(ctx context.Context, r action.Reachout) (tracking.Result, error)
	RecordResponse(ctx context.Context, r action.Reachout, response string) (tracking.Result, error)
}

type Executor struct {
	tracker Tracker
	logger  *zap.Logger
}

func NewExecutor(t Tracker, logger *zap.Logger) *Executor {
	return &Executor{tracker: t, logger: logger.Named("executor")}
}

// Execute applies act to the session. Element ids are resolved only against
// locators, which must come from the observation the model was shown.
func (e *Executor) Execute(ctx context.Context, s browser.Session, act action.Action, locators browser.Locators) error {
	switch a := act.(type) {
	case action.Navigate:
		e.logger.Info("navigating", zap.String("url", a.URL))
		return s.Navigate(ctx, a.URL)

	case action.Click:
		el, err := e.resolve(ctx, s, a.ID, locators)
		if err != nil || el == nil {
			return err
		}
		return el.Click(ctx)

	case action.Input:
		el, err := e.resolve(ctx, s, a.ID, locators)
		if err != nil || el == nil {
			return err
		}
		return el.Type(ctx, a.Text)

	case action.KeyPress:
		e.logger.Info("pressing key", zap.String("key", a.Key))
		return s.PressKey(ctx, a.Key)

	case action.History:
		e.logger.Info("history navigation", zap.String("direction", string(a.Direction)))
		switch a.Direction {
		case action.Back:
			return s.Back(ctx)
		case action.Forward:
			return s.Forward(ctx)
		case action.Reload:
			return s.Reload(ctx)
		default:
			return fmt.Errorf("unknown history direction %q", a.Direction)
		}

	case action.RecordReachout:
		res, err := e.tracker.RecordReachout(ctx, a.Reachout)
		e.logTracking("record reachout", a.Reachout, res, err)
		return nil

	case action.DeleteReachout:
		res, err := e.tracker.DeleteReachout(ctx, a.Reachout)
		e.logTracking("delete reachout", a.Reachout, res, err)
		return nil

	case action.RecordResponse:
		res, err := e.tracker.RecordResponse(ctx, a.Reachout, a.Response)
		e.logTracking("record response", a.Reachout, res, err)
		return nil

	case action.FinalAnswer:
		return nil

	default:
		return fmt.Errorf("unknown action type %T", act)
	}
}

// resolve returns the first element matching id, or nil when the locator
// matches nothing: the page may legitimately not have rendered it.
func (e *Executor) resolve(ctx context.Context, s browser.Session, id int, locators browser.Locators) (browser.Element, error) {
	loc, ok := locators[id]
	if !ok {
		return nil, &UnknownElementError{ID: id}
	}

	elements, err := s.QueryAll(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		e.logger.Warn("locator matched no elements", zap.Int("id", id), zap.String("locator", string(loc)))
		return nil, nil
	}
	return elements[0], nil
}

func (e *Executor) logTracking(op string, r action.Reachout, res tracking.Result, err error) {
	fields := []zap.Field{
		zap.String("name", r.Name),
		zap.String("email", r.Email),
		zap.String("keyword", r.Keyword),
		zap.Int("status", res.Code),
		zap.String("body", res.Body),
	}
	if err != nil {
		e.logger.Warn(op+" failed", append(fields, zap.Error(err))...)
		return
	}
	e.logger.Info(op, fields...)
}
