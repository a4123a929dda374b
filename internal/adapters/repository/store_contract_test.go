package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

type contractStore interface {
	domain.Store
	domain.Importer
}

func seed(t *testing.T, store contractStore, userID, name string, order int) *domain.Habit {
	t.Helper()
	h, err := domain.NewHabit(userID, domain.HabitAttrs{
		Name:      name,
		Color:     "#336699",
		Schedule:  domain.SpecificDays(time.Monday, time.Wednesday),
		StartDate: domain.MustParseDate("2024-01-01"),
	})
	require.NoError(t, err)
	h.SortOrder = order
	require.NoError(t, store.CreateHabit(context.Background(), h))
	return h
}

// runStoreContract exercises the storage collaborator behaviour every
// implementation must share.
func runStoreContract(t *testing.T, store contractStore) {
	ctx := context.Background()
	user := "user-" + uuid.NewString()
	day := domain.MustParseDate("2024-06-10")

	t.Run("Success: Create, get and list in order", func(t *testing.T) {
		b := seed(t, store, user, "B", 1)
		a := seed(t, store, user, "A", 0)
		seed(t, store, "someone-else-"+uuid.NewString(), "X", 0)

		got, err := store.GetHabit(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Name)
		assert.Equal(t, user, got.UserID)
		assert.Equal(t, "#336699", got.Color)
		assert.Equal(t, domain.ScheduleSpecificDays, got.Schedule.Kind)
		assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, got.Schedule.Days)
		assert.Equal(t, "2024-01-01", got.StartDate.String())

		list, err := store.ListHabits(ctx, user, false)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, a.ID, list[0].ID)
		assert.Equal(t, b.ID, list[1].ID)

		for _, h := range list {
			require.NoError(t, store.DeleteHabit(ctx, h.ID))
		}
	})

	t.Run("Success: Archive hides from the active list", func(t *testing.T) {
		h := seed(t, store, user, "Walk", 0)
		defer store.DeleteHabit(ctx, h.ID)

		require.NoError(t, store.ArchiveHabit(ctx, h.ID, time.Now()))

		active, err := store.ListHabits(ctx, user, false)
		require.NoError(t, err)
		assert.Empty(t, active)

		all, err := store.ListHabits(ctx, user, true)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.NotNil(t, all[0].ArchivedAt)

		require.NoError(t, store.UnarchiveHabit(ctx, h.ID))
		active, err = store.ListHabits(ctx, user, false)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("Success: Update replaces attributes", func(t *testing.T) {
		h := seed(t, store, user, "Walk", 0)
		defer store.DeleteHabit(ctx, h.ID)

		require.NoError(t, h.Update(domain.HabitAttrs{
			Name:      "Run",
			Schedule:  domain.Frequency(3),
			StartDate: domain.MustParseDate("2024-02-01"),
		}))
		require.NoError(t, store.UpdateHabit(ctx, h))

		got, err := store.GetHabit(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, "Run", got.Name)
		assert.Equal(t, 3, got.Schedule.TimesPerWeek)
		assert.Equal(t, "2024-02-01", got.StartDate.String())
	})

	t.Run("Success: Upsert replaces the same cell in place", func(t *testing.T) {
		h := seed(t, store, user, "Walk", 0)
		defer store.DeleteHabit(ctx, h.ID)

		first, err := store.UpsertLog(ctx, user, h.ID, day, domain.StatusCompleted)
		require.NoError(t, err)
		second, err := store.UpsertLog(ctx, user, h.ID, day, domain.StatusSkipped)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, domain.StatusSkipped, second.Status)

		logs, err := store.GetLogsInRange(ctx, user, day, day)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, domain.StatusSkipped, logs[0].Status)
		assert.True(t, logs[0].Date.Equal(day))
	})

	t.Run("Success: Range is inclusive and scoped to the user", func(t *testing.T) {
		h := seed(t, store, user, "Walk", 0)
		defer store.DeleteHabit(ctx, h.ID)

		for _, d := range []string{"2024-06-01", "2024-06-05", "2024-06-09", "2024-06-10"} {
			_, err := store.UpsertLog(ctx, user, h.ID, domain.MustParseDate(d), domain.StatusCompleted)
			require.NoError(t, err)
		}

		logs, err := store.GetLogsInRange(ctx, user, domain.MustParseDate("2024-06-05"), domain.MustParseDate("2024-06-09"))
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "2024-06-05", logs[0].Date.String())
		assert.Equal(t, "2024-06-09", logs[1].Date.String())

		none, err := store.GetLogsInRange(ctx, "stranger", domain.MustParseDate("2024-01-01"), domain.MustParseDate("2024-12-31"))
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Success: Delete log reports presence", func(t *testing.T) {
		h := seed(t, store, user, "Walk", 0)
		defer store.DeleteHabit(ctx, h.ID)
		_, err := store.UpsertLog(ctx, user, h.ID, day, domain.StatusCompleted)
		require.NoError(t, err)

		deleted, err := store.DeleteLog(ctx, user, h.ID, day)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.DeleteLog(ctx, user, h.ID, day)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Success: Delete habit cascades to its logs", func(t *testing.T) {
		h := seed(t, store, user, "Walk", 0)
		_, err := store.UpsertLog(ctx, user, h.ID, day, domain.StatusCompleted)
		require.NoError(t, err)

		require.NoError(t, store.DeleteHabit(ctx, h.ID))

		_, err = store.GetHabit(ctx, h.ID)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
		logs, err := store.GetLogsInRange(ctx, user, day, day)
		require.NoError(t, err)
		assert.Empty(t, logs)

		assert.ErrorIs(t, store.DeleteHabit(ctx, h.ID), domain.ErrHabitNotFound)
	})

	t.Run("Success: Reorder", func(t *testing.T) {
		a := seed(t, store, user, "A", 0)
		b := seed(t, store, user, "B", 1)
		defer store.DeleteHabit(ctx, a.ID)
		defer store.DeleteHabit(ctx, b.ID)

		require.NoError(t, store.ReorderHabits(ctx, user, []string{b.ID, a.ID}))

		list, err := store.ListHabits(ctx, user, false)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, b.ID, list[0].ID)
		assert.Equal(t, 0, list[0].SortOrder)
		assert.Equal(t, 1, list[1].SortOrder)
	})

	t.Run("Fail: Unknown habits are not found", func(t *testing.T) {
		_, err := store.GetHabit(ctx, "missing-"+uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)

		_, err = store.UpsertLog(ctx, user, "missing-"+uuid.NewString(), day, domain.StatusCompleted)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)

		assert.ErrorIs(t, store.ArchiveHabit(ctx, "missing", time.Now()), domain.ErrHabitNotFound)
		assert.ErrorIs(t, store.ReorderHabits(ctx, user, []string{"missing"}), domain.ErrHabitNotFound)
	})

	t.Run("Success: Import upserts habits and logs", func(t *testing.T) {
		existing := seed(t, store, user, "Walk", 0)
		defer store.DeleteHabit(ctx, existing.ID)
		_, err := store.UpsertLog(ctx, user, existing.ID, day, domain.StatusCompleted)
		require.NoError(t, err)

		renamed := *existing
		renamed.Name = "Walk renamed"
		fresh, err := domain.NewHabit(user, domain.HabitAttrs{Name: "Read", Schedule: domain.Everyday(), StartDate: day})
		require.NoError(t, err)
		fresh.SortOrder = 1
		defer store.DeleteHabit(ctx, fresh.ID)

		logs := []*domain.LogEntry{
			domain.NewLogEntry(user, existing.ID, day, domain.StatusSkipped),
			domain.NewLogEntry(user, fresh.ID, day, domain.StatusCompleted),
		}
		require.NoError(t, store.ImportAll(ctx, user, []*domain.Habit{&renamed, fresh}, logs))

		list, err := store.ListHabits(ctx, user, false)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Walk renamed", list[0].Name)

		got, err := store.GetLogsInRange(ctx, user, day, day)
		require.NoError(t, err)
		require.Len(t, got, 2)
		statuses := map[string]domain.Status{}
		for _, e := range got {
			statuses[e.HabitID] = e.Status
		}
		assert.Equal(t, domain.StatusSkipped, statuses[existing.ID])
		assert.Equal(t, domain.StatusCompleted, statuses[fresh.ID])
	})

	t.Run("Fail: Import with an unknown habit applies nothing", func(t *testing.T) {
		fresh, err := domain.NewHabit(user, domain.HabitAttrs{Name: "Yoga", Schedule: domain.Everyday(), StartDate: day})
		require.NoError(t, err)

		logs := []*domain.LogEntry{domain.NewLogEntry(user, "ghost-"+uuid.NewString(), day, domain.StatusCompleted)}
		err = store.ImportAll(ctx, user, []*domain.Habit{fresh}, logs)

		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
		_, err = store.GetHabit(ctx, fresh.ID)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound, "the transaction rolled back")
	})

	t.Run("Fail: Import cannot write to another user's habits", func(t *testing.T) {
		owner := "owner-" + uuid.NewString()
		other := "other-" + uuid.NewString()
		theirs := seed(t, store, owner, "Theirs", 0)
		defer store.DeleteHabit(ctx, theirs.ID)
		_, err := store.UpsertLog(ctx, owner, theirs.ID, day, domain.StatusCompleted)
		require.NoError(t, err)

		hijacked := *theirs
		hijacked.Name = "Hijacked"
		logs := []*domain.LogEntry{domain.NewLogEntry(other, theirs.ID, day, domain.StatusSkipped)}

		err = store.ImportAll(ctx, other, []*domain.Habit{&hijacked}, logs)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)

		err = store.ImportAll(ctx, other, nil, logs)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound, "a log alone cannot reach a foreign habit")

		got, err := store.GetHabit(ctx, theirs.ID)
		require.NoError(t, err)
		assert.Equal(t, "Theirs", got.Name)
		assert.Equal(t, owner, got.UserID)

		ownerLogs, err := store.GetLogsInRange(ctx, owner, day, day)
		require.NoError(t, err)
		require.Len(t, ownerLogs, 1)
		assert.Equal(t, domain.StatusCompleted, ownerLogs[0].Status)

		otherLogs, err := store.GetLogsInRange(ctx, other, day, day)
		require.NoError(t, err)
		assert.Empty(t, otherLogs)
	})

	t.Run("Success: Import accepts logs for habits already owned", func(t *testing.T) {
		mine := seed(t, store, user, "Mine", 5)
		defer store.DeleteHabit(ctx, mine.ID)

		logs := []*domain.LogEntry{domain.NewLogEntry(user, mine.ID, day, domain.StatusSkipped)}
		require.NoError(t, store.ImportAll(ctx, user, nil, logs))

		got, err := store.GetLogsInRange(ctx, user, day, day)
		require.NoError(t, err)
		statuses := map[string]domain.Status{}
		for _, e := range got {
			statuses[e.HabitID] = e.Status
		}
		assert.Equal(t, domain.StatusSkipped, statuses[mine.ID])
	})
}
