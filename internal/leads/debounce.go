package leads

import (
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/leadclaw/internal/bus"
)

// FlushFunc receives the merged conversation turn once the contact goes
// quiet. It runs on the debounce timer goroutine.
type FlushFunc func(ev bus.InboundEvent)

type pending struct {
	ev    bus.InboundEvent
	parts []string
	timer *time.Timer
}

// Debouncer merges rapid message fragments from the same (channel, contact)
// into a single turn. Each new fragment resets the quiet timer; the buffer
// flushes only after the configured silence elapses.
type Debouncer struct {
	flush FlushFunc

	mu      sync.Mutex
	buffers map[string]*pending
	stopped bool
}

// NewDebouncer creates a debouncer delivering merged turns to flush.
func NewDebouncer(flush FlushFunc) *Debouncer {
	return &Debouncer{
		flush:   flush,
		buffers: make(map[string]*pending),
	}
}

// Add buffers the fragment and (re)starts the quiet timer for its
// conversation. quiet is passed per call so channel overrides apply.
func (d *Debouncer) Add(ev bus.InboundEvent, quiet time.Duration) {
	key := ev.Key()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	p, ok := d.buffers[key]
	if !ok {
		p = &pending{ev: ev}
		d.buffers[key] = p
		p.timer = time.AfterFunc(quiet, func() { d.fire(key) })
	} else {
		// Keep the latest media reference; older ones are superseded.
		if ev.MediaRef != "" {
			p.ev.MediaRef = ev.MediaRef
			p.ev.Kind = ev.Kind
		}
		p.timer.Reset(quiet)
	}
	if ev.Text != "" {
		p.parts = append(p.parts, ev.Text)
	}
}

func (d *Debouncer) fire(key string) {
	d.mu.Lock()
	p, ok := d.buffers[key]
	if ok {
		delete(d.buffers, key)
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	p.ev.Text = strings.Join(p.parts, " ")
	// Flush runs outside the lock: fragments arriving while generation is
	// in flight start a fresh buffer and a fresh turn.
	d.flush(p.ev)
}

// Pending reports whether a buffer exists for the conversation key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.buffers[key]
	return ok
}

// Stop cancels all timers and discards buffered fragments.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, p := range d.buffers {
		p.timer.Stop()
		delete(d.buffers, key)
	}
}
