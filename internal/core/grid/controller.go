package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/gesture"
	"github.com/comitanigiacomo/kanso-grid/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

var ErrAlreadyCommitted = errors.New("mutation already committed")

// Op is what a tap asks for.
type Op int

const (
	// OpToggleComplete is the single tap: empty <-> completed, skipped -> completed.
	OpToggleComplete Op = iota + 1
	// OpToggleSkip is the double tap: empty <-> skipped, completed -> skipped.
	OpToggleSkip
)

func (o Op) String() string {
	switch o {
	case OpToggleComplete:
		return "toggle_complete"
	case OpToggleSkip:
		return "toggle_skip"
	}
	return "unknown"
}

func OpForTap(k gesture.Kind) Op {
	if k == gesture.DoubleTap {
		return OpToggleSkip
	}
	return OpToggleComplete
}

// Next is the tap transition table.
func Next(current domain.CellState, op Op) domain.CellState {
	switch op {
	case OpToggleComplete:
		if current == domain.CellCompleted {
			return domain.CellEmpty
		}
		return domain.CellCompleted
	case OpToggleSkip:
		if current == domain.CellSkipped {
			return domain.CellEmpty
		}
		return domain.CellSkipped
	}
	return current
}

// Mutation is one optimistic change to a cell. It carries its own inverse
// (the entry the cell held before it was applied) so a failure can be undone
// without re-deriving anything.
type Mutation struct {
	HabitID string
	Date    domain.Date
	Op      Op

	key    string
	before *domain.LogEntry
	after  *domain.LogEntry

	prior     *Mutation
	done      chan struct{}
	committed bool
}

// Target is the state the cell shows while the mutation is in flight.
func (m *Mutation) Target() domain.CellState { return domain.StateOf(m.after) }

func (m *Mutation) Previous() domain.CellState { return domain.StateOf(m.before) }

// Done is closed once the mutation has been confirmed or reverted.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Controller owns the active habit list and the log index of the loaded date
// window. Taps are applied to the index immediately and reconciled with the
// store afterwards. Mutations of the same cell reach the store strictly in tap
// order; a failed mutation reverts only its own effect.
type Controller struct {
	store  domain.Store
	userID string

	mu      sync.RWMutex
	window  domain.DateRange
	habits  []*domain.Habit
	byID    map[string]*domain.Habit
	index   *domain.LogIndex
	pending map[string][]*Mutation

	// confirms counts store confirmations; confirmed remembers the count at
	// which a cell was last confirmed so a reload that started earlier does
	// not roll it back.
	confirms  uint64
	confirmed map[string]confirmation
	reloads   uint64

	inflight sync.WaitGroup
	onError  func(*Mutation, error)
}

type confirmation struct {
	habitID string
	date    domain.Date
	seq     uint64
}

type Option func(*Controller)

// WithErrorHandler registers a callback for reverted mutations, e.g. to
// surface a message in the UI.
func WithErrorHandler(fn func(*Mutation, error)) Option {
	return func(c *Controller) { c.onError = fn }
}

func NewController(store domain.Store, userID string, window domain.DateRange, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		userID:    userID,
		window:    window,
		byID:      make(map[string]*domain.Habit),
		index:     domain.NewLogIndex(nil),
		pending:   make(map[string][]*Mutation),
		confirmed: make(map[string]confirmation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) UserID() string { return c.userID }

func (c *Controller) Window() domain.DateRange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window
}

// Reload refetches the active habits and the log window. Cells with
// mutations still in flight keep their optimistic value; every other cell
// takes the fetched value.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.reloads++
	gen := c.reloads
	since := c.confirms
	window := c.window
	c.mu.Unlock()

	habits, err := c.store.ListHabits(ctx, c.userID, false)
	if err != nil {
		return fmt.Errorf("reload habits: %w", err)
	}
	logs, err := c.store.GetLogsInRange(ctx, c.userID, window.Start, window.End)
	if err != nil {
		return fmt.Errorf("reload logs: %w", err)
	}

	active := domain.ActiveHabits(habits)
	domain.SortHabits(active)
	fresh := domain.NewLogIndex(logs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.reloads {
		// a newer reload owns the state
		return nil
	}

	for key, cf := range c.confirmed {
		if cf.seq <= since {
			delete(c.confirmed, key)
			continue
		}
		e, _ := c.index.Get(cf.habitID, cf.date)
		c.set(fresh, cf.habitID, cf.date, e)
	}

	for _, queue := range c.pending {
		if len(queue) == 0 {
			continue
		}
		first, last := queue[0], queue[len(queue)-1]
		server, _ := fresh.Get(first.HabitID, first.Date)
		first.before = server.Clone()
		c.set(fresh, first.HabitID, first.Date, last.after)
	}

	c.habits = active
	c.byID = make(map[string]*domain.Habit, len(active))
	for _, h := range active {
		c.byID[h.ID] = h
	}
	c.index = fresh
	return nil
}

// SetWindow changes the loaded date range and reloads.
func (c *Controller) SetWindow(ctx context.Context, window domain.DateRange) error {
	c.mu.Lock()
	c.window = window
	c.mu.Unlock()
	return c.Reload(ctx)
}

// Habits returns the active habits in display order.
func (c *Controller) Habits() []*domain.Habit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Habit, len(c.habits))
	copy(out, c.habits)
	return out
}

func (c *Controller) Habit(id string) (*domain.Habit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.byID[id]
	return h, ok
}

// GetLog returns a copy of the entry for the cell, or false when it is empty.
func (c *Controller) GetLog(habitID string, date domain.Date) (*domain.LogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.index.Get(habitID, date)
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

func (c *Controller) CellState(habitID string, date domain.Date) domain.CellState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, _ := c.index.Get(habitID, date)
	return domain.StateOf(e)
}

// IsScheduled reports whether the cell is a scheduled day, for muting.
func (c *Controller) IsScheduled(habitID string, date domain.Date) bool {
	c.mu.RLock()
	h, ok := c.byID[habitID]
	c.mu.RUnlock()
	return ok && schedule.IsHabitScheduled(h, date)
}

// Snapshot hands out a private copy of the index for readers such as
// analytics.
func (c *Controller) Snapshot() *domain.LogIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Clone()
}

// PendingCount is the number of mutations not yet confirmed or reverted.
func (c *Controller) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, q := range c.pending {
		n += len(q)
	}
	return n
}

// Apply performs the optimistic half of a tap: the index changes right away
// and the returned mutation must be passed to Commit exactly once.
func (c *Controller) Apply(op Op, habitID string, date domain.Date) (*Mutation, error) {
	if op != OpToggleComplete && op != OpToggleSkip {
		return nil, domain.NewValidationError("op", "unknown tap operation")
	}
	if date.IsZero() {
		return nil, domain.NewValidationError("date", "date is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[habitID]; !ok {
		return nil, domain.ErrHabitNotFound
	}

	key := domain.LogKey(habitID, date)
	current, _ := c.index.Get(habitID, date)

	m := &Mutation{
		HabitID: habitID,
		Date:    date,
		Op:      op,
		key:     key,
		before:  current.Clone(),
		done:    make(chan struct{}),
	}

	switch Next(domain.StateOf(current), op) {
	case domain.CellCompleted:
		m.after = c.replace(current, habitID, date, domain.StatusCompleted)
	case domain.CellSkipped:
		m.after = c.replace(current, habitID, date, domain.StatusSkipped)
	case domain.CellEmpty:
		m.after = nil
	}

	if q := c.pending[key]; len(q) > 0 {
		m.prior = q[len(q)-1]
	}
	c.pending[key] = append(c.pending[key], m)
	c.set(c.index, habitID, date, m.after)
	c.inflight.Add(1)
	return m, nil
}

// replace keeps the identity of an existing entry when only its status
// changes.
func (c *Controller) replace(current *domain.LogEntry, habitID string, date domain.Date, status domain.Status) *domain.LogEntry {
	if current == nil {
		return domain.NewLogEntry(c.userID, habitID, date, status)
	}
	e := current.Clone()
	e.Status = status
	return e
}

// Commit sends the mutation to the store once every earlier mutation of the
// same cell has finished, then confirms or reverts it. The returned error is
// the store failure that caused a revert.
func (c *Controller) Commit(ctx context.Context, m *Mutation) error {
	c.mu.Lock()
	if m.committed {
		c.mu.Unlock()
		return ErrAlreadyCommitted
	}
	m.committed = true
	c.mu.Unlock()

	defer c.inflight.Done()
	defer close(m.done)

	if m.prior != nil {
		// the prior settles on its own even if ctx is done; waiting for it
		// keeps store order equal to tap order
		<-m.prior.done
	}
	if err := ctx.Err(); err != nil {
		c.finish(m, nil, err)
		return err
	}

	var (
		server *domain.LogEntry
		err    error
	)
	if m.after == nil {
		_, err = c.store.DeleteLog(ctx, c.userID, m.HabitID, m.Date)
	} else {
		server, err = c.store.UpsertLog(ctx, c.userID, m.HabitID, m.Date, m.after.Status)
	}

	c.finish(m, server, err)
	return err
}

// Toggle applies and commits in one call.
func (c *Controller) Toggle(ctx context.Context, op Op, habitID string, date domain.Date) (domain.CellState, error) {
	m, err := c.Apply(op, habitID, date)
	if err != nil {
		return c.CellState(habitID, date), err
	}
	err = c.Commit(ctx, m)
	return c.CellState(habitID, date), err
}

// Wait blocks until every applied mutation has been committed and settled.
func (c *Controller) Wait() { c.inflight.Wait() }

func (c *Controller) finish(m *Mutation, server *domain.LogEntry, err error) {
	c.mu.Lock()

	queue := c.pending[m.key]
	pos := -1
	for i, q := range queue {
		if q == m {
			pos = i
			break
		}
	}
	var next *Mutation
	if pos >= 0 && pos+1 < len(queue) {
		next = queue[pos+1]
	}
	if pos >= 0 {
		queue = append(queue[:pos:pos], queue[pos+1:]...)
	}
	if len(queue) == 0 {
		delete(c.pending, m.key)
	} else {
		c.pending[m.key] = queue
	}

	if err != nil {
		if next != nil {
			// the newer intent stays on screen; if it fails too the cell must
			// fall back to what the store held before this one
			next.before = m.before
		} else {
			c.set(c.index, m.HabitID, m.Date, m.before)
		}
		c.mu.Unlock()

		logger.Warn("reverted optimistic update",
			"habit", m.HabitID, "date", m.Date.String(), "op", m.Op.String(), "err", err)
		if c.onError != nil {
			c.onError(m, err)
		}
		return
	}

	c.confirms++
	c.confirmed[m.key] = confirmation{habitID: m.HabitID, date: m.Date, seq: c.confirms}
	if next != nil {
		next.before = server.Clone()
	} else {
		c.set(c.index, m.HabitID, m.Date, server)
	}
	c.mu.Unlock()
}

func (c *Controller) set(idx *domain.LogIndex, habitID string, date domain.Date, e *domain.LogEntry) {
	if e == nil {
		idx.Delete(habitID, date)
		return
	}
	e = e.Clone()
	e.HabitID = habitID
	e.Date = date
	idx.Put(e)
}
