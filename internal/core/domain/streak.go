package domain

import (
	"context"
	"time"
)

// StreakSnapshot is a precomputed streak for one habit, refreshed in the
// background after log changes.
type StreakSnapshot struct {
	HabitID    string    `json:"habit_id"`
	UserID     string    `json:"user_id"`
	Current    int       `json:"current_streak"`
	Longest    int       `json:"longest_streak"`
	AsOf       Date      `json:"as_of"`
	ComputedAt time.Time `json:"computed_at"`
}

type StreakCache interface {
	// SaveStreak stores the snapshot, replacing any previous one for the habit.
	SaveStreak(ctx context.Context, snap StreakSnapshot) error

	// ListStreaks returns every snapshot of the user, in no particular order.
	ListStreaks(ctx context.Context, userID string) ([]StreakSnapshot, error)

	DeleteStreak(ctx context.Context, userID, habitID string) error
}
