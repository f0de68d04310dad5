package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// streamHeadroom is how many live events a stream may fall behind before it is cut off.
const streamHeadroom = 64

// Broadcaster keeps the progress events of one generation run and relays them to every
// open /events stream. A stream that opens late replays the run from its first event.
type Broadcaster struct {
	mu       sync.Mutex
	history  []map[string]any
	streams  map[uint64]chan map[string]any
	next     uint64
	finished chan struct{} // closed when the run ends; cutting off a lagging stream leaves it open
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		streams:  make(map[uint64]chan map[string]any),
		finished: make(chan struct{}),
	}
}

func (b *Broadcaster) isFinished() bool {
	select {
	case <-b.finished:
		return true
	default:
		return false
	}
}

// Send is the run's progress sink. Events after Close are discarded.
func (b *Broadcaster) Send(ev map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isFinished() {
		return
	}
	b.history = append(b.history, ev)
	for id, ch := range b.streams {
		select {
		case ch <- ev:
		default:
			// The run never waits on a reader.
			close(ch)
			delete(b.streams, id)
		}
	}
}

// Subscribe opens a stream: the run's events so far, then live ones. finished is closed
// when the run ends, which lets a reader tell completion from being cut off.
func (b *Broadcaster) Subscribe() (events <-chan map[string]any, finished <-chan struct{}, cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan map[string]any, len(b.history)+streamHeadroom)
	for _, ev := range b.history {
		ch <- ev
	}
	if b.isFinished() {
		close(ch)
		return ch, b.finished, func() {}
	}

	id := b.next
	b.next++
	b.streams[id] = ch
	return ch, b.finished, func() { b.drop(id) }
}

func (b *Broadcaster) drop(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.streams[id]; ok {
		delete(b.streams, id)
		close(ch)
	}
}

// Close marks the run finished and ends every open stream. Safe to call twice.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isFinished() {
		return
	}
	close(b.finished)
	for id, ch := range b.streams {
		close(ch)
		delete(b.streams, id)
	}
}

// History is a snapshot of the events sent so far; RunState.Status reads it.
func (b *Broadcaster) History() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.history...)
}

// WriteSSE serves b as text/event-stream. The SSE event name is the progress event's
// "event" field. A finished run ends with an "end" event; a cut-off stream just closes.
func WriteSSE(w http.ResponseWriter, r *http.Request, b *Broadcaster) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	events, finished, cancel := b.Subscribe()
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				select {
				case <-finished:
					writeSSEFrame(w, "end", []byte("{}"))
					flusher.Flush()
				default:
				}
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			kind, _ := ev["event"].(string)
			writeSSEFrame(w, kind, data)
			flusher.Flush()
		}
	}
}

func writeSSEFrame(w io.Writer, event string, data []byte) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
