package agent

import (
	"os"
	"os/signal"
	"sync"
)

// SignalController latches Ctrl+C so the loop can stop between steps. A step
// already in flight is never cancelled.
type SignalController struct {
	ch       chan os.Signal
	once     sync.Once
	received bool
}

func NewSignalController(sigs ...os.Signal) *SignalController {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	return &SignalController{ch: ch}
}

func (s *SignalController) Interrupted() bool {
	if s.received {
		return true
	}
	select {
	case <-s.ch:
		s.received = true
	default:
	}
	return s.received
}

func (s *SignalController) Close() {
	s.once.Do(func() {
		signal.Stop(s.ch)
	})
}
