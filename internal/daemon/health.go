package daemon

import (
	"go.uber.org/zap"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/status"
)

// degradeAfter is the number of consecutive store write failures that
// marks the daemon degraded.
const degradeAfter = 3

// watchHealth folds sync.write_failed / sync.write_recovered events into
// READY ↔ DEGRADED transitions. Returns a stop func.
func watchHealth(b *bus.Bus, machine *status.Machine, logger *zap.Logger) func() {
	events, unsub := b.Subscribe("sync.write_", 64)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		failures := 0
		for {
			var evt bus.Event
			select {
			case evt = <-events:
			case <-stop:
				return
			}
			switch evt.Kind {
			case bus.KindWriteFailed:
				failures++
				if failures == degradeAfter && machine.Current() == status.Ready {
					logger.Warn("store writes failing, marking degraded", zap.Int("failures", failures))
					_ = machine.Transition(status.Degraded)
				}
			case bus.KindWriteRecovered:
				failures = 0
				if machine.Current() == status.Degraded {
					logger.Info("store writes recovered")
					_ = machine.Transition(status.Ready)
				}
			}
		}
	}()

	return func() {
		unsub()
		close(stop)
		<-done
	}
}
