package keyedstore

import (
	"encoding/json"
	"sync"
)

// watchTable tracks per-path subscriptions. Shared by both backends, since
// change notification is in-process either way.
type watchTable struct {
	mu   sync.Mutex
	subs map[string]map[int]chan json.RawMessage
	next int
}

func newWatchTable() *watchTable {
	return &watchTable{subs: make(map[string]map[int]chan json.RawMessage)}
}

// add registers a subscription on path and seeds it with the current value.
// Returns the receive channel and a cancel function.
func (w *watchTable) add(path string, current json.RawMessage) (<-chan json.RawMessage, func()) {
	ch := make(chan json.RawMessage, subscribeBuffer)
	ch <- current

	w.mu.Lock()
	id := w.next
	w.next++
	if w.subs[path] == nil {
		w.subs[path] = make(map[int]chan json.RawMessage)
	}
	w.subs[path][id] = ch
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if chans, ok := w.subs[path]; ok {
			if c, ok := chans[id]; ok {
				delete(chans, id)
				close(c)
			}
			if len(chans) == 0 {
				delete(w.subs, path)
			}
		}
	}
}

// notify fans a new snapshot out to every subscription on path.
// Full subscribers are skipped (non-blocking).
func (w *watchTable) notify(path string, value json.RawMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs[path] {
		select {
		case ch <- value:
		default:
		}
	}
}
