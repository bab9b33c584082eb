package daemon

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/status"
)

func waitState(t *testing.T, m *status.Machine, want status.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Current() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", m.Current(), want)
}

func TestWatchHealthDegradesAndRecovers(t *testing.T) {
	b := bus.New()
	machine := status.NewMachine(nil)
	if err := machine.Transition(status.Ready); err != nil {
		t.Fatal(err)
	}

	stop := watchHealth(b, machine, zap.NewNop())
	defer stop()

	for i := 0; i < degradeAfter; i++ {
		b.Publish(bus.Event{Kind: bus.KindWriteFailed, Timestamp: time.Now(), Payload: bus.WriteEvent{Path: "u1/conversations"}})
	}
	waitState(t, machine, status.Degraded)

	b.Publish(bus.Event{Kind: bus.KindWriteRecovered, Timestamp: time.Now(), Payload: bus.WriteEvent{Path: "u1/conversations"}})
	waitState(t, machine, status.Ready)
}

func TestWatchHealthIgnoresIsolatedFailures(t *testing.T) {
	b := bus.New()
	machine := status.NewMachine(nil)
	if err := machine.Transition(status.Ready); err != nil {
		t.Fatal(err)
	}

	stop := watchHealth(b, machine, zap.NewNop())
	defer stop()

	b.Publish(bus.Event{Kind: bus.KindWriteFailed, Timestamp: time.Now(), Payload: bus.WriteEvent{Path: "p"}})
	b.Publish(bus.Event{Kind: bus.KindWriteRecovered, Timestamp: time.Now(), Payload: bus.WriteEvent{Path: "p"}})

	// Give the watcher time to process; the state must not change.
	time.Sleep(100 * time.Millisecond)
	if machine.Current() != status.Ready {
		t.Errorf("state = %s, want READY", machine.Current())
	}
}
