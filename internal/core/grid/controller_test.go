package grid_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/gesture"
	"github.com/comitanigiacomo/kanso-grid/internal/core/grid"
)

// MockStore is a map-backed store whose log writes can be failed or held at
// a gate to control completion order.
type MockStore struct {
	mu     sync.Mutex
	habits map[string]*domain.Habit
	logs   map[string]*domain.LogEntry
	calls  []string

	simulateError error
	failNext      []error
	gate          chan struct{}
}

func NewMockStore(habits ...*domain.Habit) *MockStore {
	m := &MockStore{habits: make(map[string]*domain.Habit), logs: make(map[string]*domain.LogEntry)}
	for _, h := range habits {
		m.habits[h.ID] = h
	}
	return m
}

func (m *MockStore) nextErr() error {
	if len(m.failNext) > 0 {
		err := m.failNext[0]
		m.failNext = m.failNext[1:]
		return err
	}
	return m.simulateError
}

func (m *MockStore) wait() {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (m *MockStore) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]*domain.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Habit
	for _, h := range m.habits {
		if includeArchived || !h.IsArchived() {
			clone := *h
			out = append(out, &clone)
		}
	}
	domain.SortHabits(out)
	return out, nil
}

func (m *MockStore) GetHabit(ctx context.Context, id string) (*domain.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.habits[id]
	if !ok {
		return nil, domain.ErrHabitNotFound
	}
	clone := *h
	return &clone, nil
}

func (m *MockStore) CreateHabit(ctx context.Context, habit *domain.Habit) error { return nil }
func (m *MockStore) UpdateHabit(ctx context.Context, habit *domain.Habit) error { return nil }
func (m *MockStore) ArchiveHabit(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (m *MockStore) UnarchiveHabit(ctx context.Context, id string) error { return nil }
func (m *MockStore) DeleteHabit(ctx context.Context, id string) error    { return nil }
func (m *MockStore) ReorderHabits(ctx context.Context, userID string, orderedIDs []string) error {
	return nil
}

func (m *MockStore) GetLogsInRange(ctx context.Context, userID string, start, end domain.Date) ([]*domain.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.LogEntry
	for _, e := range m.logs {
		if !e.Date.Before(start) && !e.Date.After(end) {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (m *MockStore) UpsertLog(ctx context.Context, userID, habitID string, date domain.Date, status domain.Status) (*domain.LogEntry, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "upsert:"+string(status))
	if err := m.nextErr(); err != nil {
		return nil, err
	}
	key := domain.LogKey(habitID, date)
	if e, ok := m.logs[key]; ok {
		e.Status = status
		return e.Clone(), nil
	}
	e := domain.NewLogEntry(userID, habitID, date, status)
	e.ID = "srv-" + e.ID
	m.logs[key] = e
	return e.Clone(), nil
}

func (m *MockStore) DeleteLog(ctx context.Context, userID, habitID string, date domain.Date) (bool, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete")
	if err := m.nextErr(); err != nil {
		return false, err
	}
	key := domain.LogKey(habitID, date)
	_, ok := m.logs[key]
	delete(m.logs, key)
	return ok, nil
}

func (m *MockStore) put(habitID string, date domain.Date, status domain.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := domain.NewLogEntry("u1", habitID, date, status)
	m.logs[domain.LogKey(habitID, date)] = e
}

func (m *MockStore) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

var (
	day    = domain.MustParseDate("2024-06-10")
	window = domain.LastNDays(day, 30)
)

func testHabit(id string, order int) *domain.Habit {
	return &domain.Habit{
		ID: id, UserID: "u1", Name: id, Schedule: domain.Everyday(),
		StartDate: window.Start, SortOrder: order, CreatedAt: time.Now(),
	}
}

func newController(t *testing.T, store *MockStore, opts ...grid.Option) *grid.Controller {
	t.Helper()
	c := grid.NewController(store, "u1", window, opts...)
	require.NoError(t, c.Reload(context.Background()))
	return c
}

func TestNext(t *testing.T) {
	tests := []struct {
		from domain.CellState
		op   grid.Op
		want domain.CellState
	}{
		{domain.CellEmpty, grid.OpToggleComplete, domain.CellCompleted},
		{domain.CellCompleted, grid.OpToggleComplete, domain.CellEmpty},
		{domain.CellSkipped, grid.OpToggleComplete, domain.CellCompleted},
		{domain.CellEmpty, grid.OpToggleSkip, domain.CellSkipped},
		{domain.CellSkipped, grid.OpToggleSkip, domain.CellEmpty},
		{domain.CellCompleted, grid.OpToggleSkip, domain.CellSkipped},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, grid.Next(tt.from, tt.op), "%s + %s", tt.from, tt.op)
	}

	assert.Equal(t, grid.OpToggleComplete, grid.OpForTap(gesture.SingleTap))
	assert.Equal(t, grid.OpToggleSkip, grid.OpForTap(gesture.DoubleTap))
}

func TestController_Load(t *testing.T) {
	archived := testHabit("old", 0)
	now := time.Now()
	archived.ArchivedAt = &now
	store := NewMockStore(testHabit("b", 2), testHabit("a", 1), archived)
	store.put("a", day, domain.StatusSkipped)

	c := newController(t, store)

	habits := c.Habits()
	require.Len(t, habits, 2, "archived habits are not on the grid")
	assert.Equal(t, "a", habits[0].ID)
	assert.Equal(t, "b", habits[1].ID)

	assert.Equal(t, domain.CellSkipped, c.CellState("a", day))
	assert.Equal(t, domain.CellEmpty, c.CellState("b", day))
	assert.True(t, c.IsScheduled("a", day))
	assert.False(t, c.IsScheduled("a", window.Start.AddDays(-1)), "before start date")
	assert.False(t, c.IsScheduled("old", day))
}

func TestController_Toggle(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: Single tap twice returns to empty", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)

		st, err := c.Toggle(ctx, grid.OpToggleComplete, "h1", day)
		require.NoError(t, err)
		assert.Equal(t, domain.CellCompleted, st)

		st, err = c.Toggle(ctx, grid.OpToggleComplete, "h1", day)
		require.NoError(t, err)
		assert.Equal(t, domain.CellEmpty, st)

		assert.Equal(t, []string{"upsert:completed", "delete"}, store.callLog())
		_, ok := c.GetLog("h1", day)
		assert.False(t, ok)
	})

	t.Run("Success: Double tap twice returns to empty", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)

		_, err := c.Toggle(ctx, grid.OpToggleSkip, "h1", day)
		require.NoError(t, err)
		st, err := c.Toggle(ctx, grid.OpToggleSkip, "h1", day)
		require.NoError(t, err)

		assert.Equal(t, domain.CellEmpty, st)
		assert.Equal(t, []string{"upsert:skipped", "delete"}, store.callLog())
	})

	t.Run("Success: Cross toggle replaces in place", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		store.put("h1", day, domain.StatusSkipped)
		c := newController(t, store)
		before, _ := c.GetLog("h1", day)

		m, err := c.Apply(grid.OpToggleComplete, "h1", day)
		require.NoError(t, err)
		optimistic, ok := c.GetLog("h1", day)
		require.True(t, ok)
		assert.Equal(t, before.ID, optimistic.ID, "same identity while in flight")
		assert.Equal(t, domain.CellSkipped, m.Previous())
		assert.Equal(t, domain.CellCompleted, m.Target())

		require.NoError(t, c.Commit(ctx, m))
		st, err := c.Toggle(ctx, grid.OpToggleSkip, "h1", day)
		require.NoError(t, err)
		assert.Equal(t, domain.CellSkipped, st)

		logs, _ := store.GetLogsInRange(ctx, "u1", day, day)
		assert.Len(t, logs, 1, "never more than one entry per cell")
	})

	t.Run("Fail: Unknown habit is rejected before any change", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)

		_, err := c.Toggle(ctx, grid.OpToggleComplete, "ghost", day)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
		assert.Empty(t, store.callLog())
		assert.Equal(t, 0, c.PendingCount())
	})

	t.Run("Fail: Commit twice", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)

		m, _ := c.Apply(grid.OpToggleComplete, "h1", day)
		require.NoError(t, c.Commit(ctx, m))
		assert.ErrorIs(t, c.Commit(ctx, m), grid.ErrAlreadyCommitted)
	})
}

func TestController_Revert(t *testing.T) {
	ctx := context.Background()
	storageErr := domain.NewStorageError("upsert log", errors.New("connection refused"))

	t.Run("Fail: Storage error reverts to the pre-tap value and is surfaced", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		store.put("h1", day, domain.StatusSkipped)
		store.simulateError = storageErr

		var surfaced error
		c := newController(t, store, grid.WithErrorHandler(func(_ *grid.Mutation, err error) { surfaced = err }))

		st, err := c.Toggle(ctx, grid.OpToggleComplete, "h1", day)

		assert.True(t, domain.IsStorage(err))
		assert.Equal(t, domain.CellSkipped, st)
		assert.Equal(t, storageErr, surfaced)
		assert.Equal(t, 0, c.PendingCount())
	})

	t.Run("A failed earlier tap does not undo a later one", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		store.failNext = []error{storageErr}
		c := newController(t, store)

		m1, _ := c.Apply(grid.OpToggleComplete, "h1", day)
		m2, _ := c.Apply(grid.OpToggleSkip, "h1", day)
		assert.Equal(t, domain.CellSkipped, c.CellState("h1", day))

		assert.Error(t, c.Commit(ctx, m1))
		assert.Equal(t, domain.CellSkipped, c.CellState("h1", day), "newer intent stays visible")

		require.NoError(t, c.Commit(ctx, m2))
		assert.Equal(t, domain.CellSkipped, c.CellState("h1", day))
		assert.Equal(t, []string{"upsert:completed", "upsert:skipped"}, store.callLog())
	})

	t.Run("When every tap fails the cell returns to the stored value", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		store.simulateError = storageErr
		c := newController(t, store)

		m1, _ := c.Apply(grid.OpToggleComplete, "h1", day)
		m2, _ := c.Apply(grid.OpToggleSkip, "h1", day)

		assert.Error(t, c.Commit(ctx, m1))
		assert.Error(t, c.Commit(ctx, m2))
		assert.Equal(t, domain.CellEmpty, c.CellState("h1", day))
	})

	t.Run("A failed later tap falls back to the confirmed earlier one", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)

		m1, _ := c.Apply(grid.OpToggleComplete, "h1", day)
		m2, _ := c.Apply(grid.OpToggleSkip, "h1", day)

		require.NoError(t, c.Commit(ctx, m1))
		store.simulateError = storageErr
		assert.Error(t, c.Commit(ctx, m2))

		assert.Equal(t, domain.CellCompleted, c.CellState("h1", day))
		e, _ := c.GetLog("h1", day)
		assert.Contains(t, e.ID, "srv-", "confirmed server entry is restored")
	})

	t.Run("Other cells are untouched by a revert", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0), testHabit("h2", 1))
		c := newController(t, store)

		_, err := c.Toggle(ctx, grid.OpToggleComplete, "h2", day)
		require.NoError(t, err)

		store.simulateError = storageErr
		_, err = c.Toggle(ctx, grid.OpToggleComplete, "h1", day)
		assert.Error(t, err)

		assert.Equal(t, domain.CellCompleted, c.CellState("h2", day))
		assert.Equal(t, domain.CellEmpty, c.CellState("h1", day))
	})
}

func TestController_Ordering(t *testing.T) {
	t.Run("Success: Same cell mutations reach the store in tap order", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)
		ctx := context.Background()

		gate := make(chan struct{})
		store.mu.Lock()
		store.gate = gate
		store.mu.Unlock()

		m1, _ := c.Apply(grid.OpToggleComplete, "h1", day)
		m2, _ := c.Apply(grid.OpToggleComplete, "h1", day)
		m3, _ := c.Apply(grid.OpToggleSkip, "h1", day)
		assert.Equal(t, 3, c.PendingCount())

		var wg sync.WaitGroup
		for _, m := range []*grid.Mutation{m3, m2, m1} {
			wg.Add(1)
			go func(m *grid.Mutation) {
				defer wg.Done()
				assert.NoError(t, c.Commit(ctx, m))
			}(m)
		}

		close(gate)
		wg.Wait()
		c.Wait()

		assert.Equal(t, []string{"upsert:completed", "delete", "upsert:skipped"}, store.callLog())
		assert.Equal(t, domain.CellSkipped, c.CellState("h1", day))
		assert.Equal(t, 0, c.PendingCount())
	})

	t.Run("Cancelled context reverts without dispatch", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)

		m1, _ := c.Apply(grid.OpToggleComplete, "h1", day)
		m2, _ := c.Apply(grid.OpToggleSkip, "h1", day)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan error, 1)
		go func() { done <- c.Commit(ctx, m2) }()

		require.NoError(t, c.Commit(context.Background(), m1))
		assert.ErrorIs(t, <-done, context.Canceled)

		assert.Equal(t, []string{"upsert:completed"}, store.callLog())
		assert.Equal(t, domain.CellCompleted, c.CellState("h1", day))
	})
}

func TestController_Reload(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: Fetched state wins for settled cells", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)
		_, err := c.Toggle(ctx, grid.OpToggleComplete, "h1", day)
		require.NoError(t, err)

		store.put("h1", day, domain.StatusSkipped)
		store.put("h1", day.AddDays(-1), domain.StatusCompleted)
		require.NoError(t, c.Reload(ctx))

		assert.Equal(t, domain.CellSkipped, c.CellState("h1", day))
		assert.Equal(t, domain.CellCompleted, c.CellState("h1", day.AddDays(-1)))
	})

	t.Run("In-flight optimistic values survive a reload", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)

		m, _ := c.Apply(grid.OpToggleComplete, "h1", day)
		require.NoError(t, c.Reload(ctx))
		assert.Equal(t, domain.CellCompleted, c.CellState("h1", day))

		require.NoError(t, c.Commit(ctx, m))
		assert.Equal(t, domain.CellCompleted, c.CellState("h1", day))
	})

	t.Run("A revert after a reload restores the fetched value", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)

		m, _ := c.Apply(grid.OpToggleComplete, "h1", day)
		store.put("h1", day, domain.StatusSkipped)
		require.NoError(t, c.Reload(ctx))

		store.simulateError = domain.NewStorageError("upsert", errors.New("timeout"))
		assert.Error(t, c.Commit(ctx, m))
		assert.Equal(t, domain.CellSkipped, c.CellState("h1", day))
	})

	t.Run("New habits and window changes are picked up", func(t *testing.T) {
		store := NewMockStore(testHabit("h1", 0))
		c := newController(t, store)
		store.mu.Lock()
		store.habits["h2"] = testHabit("h2", 1)
		store.mu.Unlock()
		store.put("h2", day.AddDays(-60), domain.StatusCompleted)

		require.NoError(t, c.SetWindow(ctx, domain.LastNDays(day, 90)))

		assert.Len(t, c.Habits(), 2)
		assert.Equal(t, domain.CellCompleted, c.CellState("h2", day.AddDays(-60)))
		assert.Equal(t, 90, c.Window().Days())
	})
}

func TestController_Snapshot(t *testing.T) {
	store := NewMockStore(testHabit("h1", 0))
	store.put("h1", day, domain.StatusCompleted)
	c := newController(t, store)

	snap := c.Snapshot()
	snap.Delete("h1", day)

	assert.Equal(t, domain.CellCompleted, c.CellState("h1", day), "readers cannot mutate the controller index")
}
