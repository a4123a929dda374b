// Package gesture classifies pointer sequences on grid cells into single
// taps, double taps, or pans that produce no tap at all.
package gesture

import (
	"math"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

const (
	DefaultMovementThreshold = 8.0
	DefaultDoubleTapWindow   = 300 * time.Millisecond
)

type Kind int

const (
	SingleTap Kind = iota + 1
	DoubleTap
)

func (k Kind) String() string {
	switch k {
	case SingleTap:
		return "single_tap"
	case DoubleTap:
		return "double_tap"
	}
	return "unknown"
}

// Subject identifies the logical cell under the pointer.
type Subject struct {
	HabitID string
	Date    domain.Date
}

func (s Subject) Equal(o Subject) bool {
	return s.HabitID == o.HabitID && s.Date.Equal(o.Date)
}

type Event struct {
	Kind    Kind
	Subject Subject
}

type Config struct {
	// MovementThreshold is the per-axis distance beyond which a press is a pan.
	MovementThreshold float64
	// DoubleTapWindow is how long a tap waits for a partner on the same subject.
	DoubleTapWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		MovementThreshold: DefaultMovementThreshold,
		DoubleTapWindow:   DefaultDoubleTapWindow,
	}
}

type press struct {
	x, y    float64
	subject Subject
	at      time.Time
}

type pendingTap struct {
	subject Subject
	at      time.Time
	timer   clock.Timer
	done    bool
}

// Disambiguator is the per-view tap state machine:
//
//	Idle -> Pressed -> (release within threshold) -> PendingSingle
//	PendingSingle + second tap on same subject within window -> DoubleTap
//	PendingSingle + window elapsed -> SingleTap
//
// Presses are tracked per pointer id; the "last tap" record is global.
// Emit is always called without internal locks held, so it may call back
// into the disambiguator.
type Disambiguator struct {
	mu      sync.Mutex
	cfg     Config
	clock   clock.Clock
	emit    func(Event)
	presses map[int]*press
	last    *pendingTap
	armed   map[*pendingTap]struct{}
}

func NewDisambiguator(cfg Config, clk clock.Clock, emit func(Event)) *Disambiguator {
	if cfg.MovementThreshold < 0 {
		cfg.MovementThreshold = DefaultMovementThreshold
	}
	if cfg.DoubleTapWindow <= 0 {
		cfg.DoubleTapWindow = DefaultDoubleTapWindow
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Disambiguator{
		cfg:     cfg,
		clock:   clk,
		emit:    emit,
		presses: make(map[int]*press),
		armed:   make(map[*pendingTap]struct{}),
	}
}

func (d *Disambiguator) Config() Config { return d.cfg }

// PointerDown records where and on which cell a press started. A second
// down on the same pointer id replaces the first.
func (d *Disambiguator) PointerDown(pointerID int, x, y float64, subject Subject) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.presses[pointerID] = &press{x: x, y: y, subject: subject, at: d.clock.Now()}
}

// PointerUp completes a press. Movement beyond the threshold on either axis
// makes it a pan and nothing is emitted.
func (d *Disambiguator) PointerUp(pointerID int, x, y float64) {
	d.mu.Lock()
	p, ok := d.presses[pointerID]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.presses, pointerID)

	if math.Abs(x-p.x) > d.cfg.MovementThreshold || math.Abs(y-p.y) > d.cfg.MovementThreshold {
		d.mu.Unlock()
		return
	}

	now := d.clock.Now()
	if last := d.last; last != nil && !last.done &&
		last.subject.Equal(p.subject) && now.Sub(last.at) < d.cfg.DoubleTapWindow {
		last.timer.Stop()
		last.done = true
		delete(d.armed, last)
		d.last = nil
		d.mu.Unlock()

		d.dispatch(Event{Kind: DoubleTap, Subject: p.subject})
		return
	}

	pending := &pendingTap{subject: p.subject, at: now}
	pending.timer = d.clock.AfterFunc(d.cfg.DoubleTapWindow, func() { d.expire(pending) })
	d.armed[pending] = struct{}{}
	d.last = pending
	d.mu.Unlock()
}

// PointerCancel abandons an in-progress press (pointer-cancel or
// pointer-leave). Pending single taps from earlier releases are unaffected.
func (d *Disambiguator) PointerCancel(pointerID int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.presses, pointerID)
}

// Pending reports whether a single tap is armed and waiting.
func (d *Disambiguator) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.armed) > 0
}

// Stop cancels every armed single tap and forgets in-progress presses
// without emitting anything.
func (d *Disambiguator) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for p := range d.armed {
		p.timer.Stop()
		p.done = true
	}
	d.armed = make(map[*pendingTap]struct{})
	d.presses = make(map[int]*press)
	d.last = nil
}

func (d *Disambiguator) expire(p *pendingTap) {
	d.mu.Lock()
	if p.done {
		d.mu.Unlock()
		return
	}
	p.done = true
	delete(d.armed, p)
	if d.last == p {
		d.last = nil
	}
	d.mu.Unlock()

	d.dispatch(Event{Kind: SingleTap, Subject: p.subject})
}

func (d *Disambiguator) dispatch(ev Event) {
	if d.emit != nil {
		d.emit(ev)
	}
}
