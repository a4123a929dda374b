// Package viewport decides where the grid opens and remembers where the user
// left it, keyed by calendar day.
package viewport

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
	"github.com/comitanigiacomo/kanso-grid/internal/core/debounce"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

const DefaultDebounce = 300 * time.Millisecond

type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Saved is what a Store keeps per user. Offset is nil when no scroll position
// has been recorded for LastOpened.
type Saved struct {
	LastOpened domain.Date `json:"last_opened"`
	Offset     *Offset     `json:"offset,omitempty"`
}

// Position is where the grid should open.
type Position struct {
	Offset
	// Restored is true when Offset came from a saved position rather than
	// the today-centered default.
	Restored bool `json:"restored"`
}

// Store persists viewport state.
type Store interface {
	LoadViewport(ctx context.Context, userID string) (Saved, error)
	SaveViewport(ctx context.Context, userID string, state Saved) error
}

// TodayScrollLeft returns the horizontal offset that centers the today column.
func TodayScrollLeft(todayIndex int, viewportWidth, cellSize float64) float64 {
	return math.Max(0, float64(todayIndex)*cellSize-viewportWidth/2+cellSize/2)
}

// InitialPosition picks the opening position. A new calendar day (or no
// record at all) always opens on today and drops the remembered offset; on the
// same day the saved offset wins when present. The returned Saved is the
// state to persist.
func InitialPosition(saved Saved, today domain.Date, todayIndex int, viewportWidth, cellSize float64) (Position, Saved) {
	centered := Position{Offset: Offset{X: TodayScrollLeft(todayIndex, viewportWidth, cellSize)}}

	if saved.LastOpened.IsZero() || !saved.LastOpened.Equal(today) {
		return centered, Saved{LastOpened: today}
	}

	if saved.Offset == nil {
		return centered, saved
	}
	return Position{Offset: *saved.Offset, Restored: true}, saved
}

// Persister loads the opening position and writes scroll positions back
// after a quiet period.
type Persister struct {
	store  Store
	userID string
	clock  clock.Clock

	mu    sync.Mutex
	today domain.Date

	debouncer *debounce.Debouncer[Saved]
}

func NewPersister(store Store, userID string, delay time.Duration, clk clock.Clock) *Persister {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if clk == nil {
		clk = clock.Real()
	}

	p := &Persister{store: store, userID: userID, clock: clk}
	p.debouncer = debounce.New(delay, clk, p.write)
	return p
}

// Restore computes the opening position. When the stored record is stale it
// is rewritten immediately so the next open on the same day restores from it.
func (p *Persister) Restore(ctx context.Context, today domain.Date, todayIndex int, viewportWidth, cellSize float64) (Position, error) {
	saved, err := p.store.LoadViewport(ctx, p.userID)
	if err != nil && !domain.IsNotFound(err) {
		logger.Warn("viewport load failed, opening on today", "user", p.userID, "err", err)
		saved = Saved{}
	}

	pos, next := InitialPosition(saved, today, todayIndex, viewportWidth, cellSize)

	p.mu.Lock()
	p.today = today
	p.mu.Unlock()

	if !next.LastOpened.Equal(saved.LastOpened) {
		if err := p.store.SaveViewport(ctx, p.userID, next); err != nil {
			return pos, err
		}
	}
	return pos, nil
}

// Scrolled records a new scroll position. The write happens once scrolling
// has been idle for the debounce delay.
func (p *Persister) Scrolled(x, y float64) {
	p.mu.Lock()
	today := p.today
	p.mu.Unlock()

	if today.IsZero() {
		today = domain.DateOf(p.clock.Now())
	}
	p.debouncer.Call(Saved{LastOpened: today, Offset: &Offset{X: x, Y: y}})
}

// Flush writes any pending position now.
func (p *Persister) Flush() { p.debouncer.Flush() }

// Close drops a pending write without persisting it.
func (p *Persister) Close() { p.debouncer.Cancel() }

func (p *Persister) Pending() bool { return p.debouncer.Pending() }

func (p *Persister) write(state Saved) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.store.SaveViewport(ctx, p.userID, state); err != nil {
		logger.Warn("viewport save failed", "user", p.userID, "err", err)
	}
}

// MemoryStore keeps viewport state in process.
type MemoryStore struct {
	mu    sync.RWMutex
	saved map[string]Saved
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{saved: make(map[string]Saved)}
}

func (m *MemoryStore) LoadViewport(_ context.Context, userID string) (Saved, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saved[userID], nil
}

func (m *MemoryStore) SaveViewport(_ context.Context, userID string, state Saved) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[userID] = state
	return nil
}
