package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

var _ domain.HabitRepository = (*SQLHabitRepository)(nil)

// SQLHabitRepository stores habits in Postgres or SQLite. Queries are written
// with ? placeholders and rebound for the driver.
type SQLHabitRepository struct {
	db *sqlx.DB
}

func NewSQLHabitRepository(db *sqlx.DB) *SQLHabitRepository {
	return &SQLHabitRepository{db: db}
}

type habitRow struct {
	ID         string      `db:"id"`
	UserID     string      `db:"user_id"`
	Name       string      `db:"name"`
	Icon       string      `db:"icon"`
	Color      string      `db:"color"`
	Schedule   string      `db:"schedule"`
	StartDate  domain.Date `db:"start_date"`
	ArchivedAt *time.Time  `db:"archived_at"`
	SortOrder  int         `db:"sort_order"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

const habitColumns = `id, user_id, name, icon, color, schedule, start_date, archived_at, sort_order, created_at, updated_at`

func toHabitRow(h *domain.Habit) (habitRow, error) {
	sched, err := json.Marshal(h.Schedule)
	if err != nil {
		return habitRow{}, fmt.Errorf("failed to marshal schedule: %w", err)
	}
	return habitRow{
		ID:         h.ID,
		UserID:     h.UserID,
		Name:       h.Name,
		Icon:       h.Icon,
		Color:      h.Color,
		Schedule:   string(sched),
		StartDate:  h.StartDate,
		ArchivedAt: h.ArchivedAt,
		SortOrder:  h.SortOrder,
		CreatedAt:  h.CreatedAt.UTC(),
		UpdatedAt:  h.UpdatedAt.UTC(),
	}, nil
}

func (row habitRow) toDomain() (*domain.Habit, error) {
	h := &domain.Habit{
		ID:         row.ID,
		UserID:     row.UserID,
		Name:       row.Name,
		Icon:       row.Icon,
		Color:      row.Color,
		StartDate:  row.StartDate,
		ArchivedAt: row.ArchivedAt,
		SortOrder:  row.SortOrder,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.Schedule), &h.Schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule of %s: %w", row.ID, err)
	}
	return h, nil
}

func (r *SQLHabitRepository) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]*domain.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = ?`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY sort_order ASC, created_at ASC`

	var rows []habitRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), userID); err != nil {
		return nil, classifyError("list habits", err, domain.ErrHabitNotFound)
	}

	habits := make([]*domain.Habit, 0, len(rows))
	for _, row := range rows {
		h, err := row.toDomain()
		if err != nil {
			return nil, domain.NewStorageError("list habits", err)
		}
		habits = append(habits, h)
	}
	return habits, nil
}

func (r *SQLHabitRepository) GetHabit(ctx context.Context, id string) (*domain.Habit, error) {
	query := r.db.Rebind(`SELECT ` + habitColumns + ` FROM habits WHERE id = ?`)

	var row habitRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, classifyError("get habit", err, domain.ErrHabitNotFound)
	}

	h, err := row.toDomain()
	if err != nil {
		return nil, domain.NewStorageError("get habit", err)
	}
	return h, nil
}

func (r *SQLHabitRepository) CreateHabit(ctx context.Context, h *domain.Habit) error {
	row, err := toHabitRow(h)
	if err != nil {
		return domain.NewStorageError("create habit", err)
	}

	query := `
        INSERT INTO habits (` + habitColumns + `)
        VALUES (:id, :user_id, :name, :icon, :color, :schedule, :start_date, :archived_at, :sort_order, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return classifyError("create habit", err, domain.ErrHabitNotFound)
	}
	return nil
}

func (r *SQLHabitRepository) UpdateHabit(ctx context.Context, h *domain.Habit) error {
	row, err := toHabitRow(h)
	if err != nil {
		return domain.NewStorageError("update habit", err)
	}

	query := `
        UPDATE habits SET
            name = :name, icon = :icon, color = :color, schedule = :schedule,
            start_date = :start_date, archived_at = :archived_at,
            sort_order = :sort_order, updated_at = :updated_at
        WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return classifyError("update habit", err, domain.ErrHabitNotFound)
	}
	return expectOne(res, "update habit", domain.ErrHabitNotFound)
}

func (r *SQLHabitRepository) ArchiveHabit(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	query := r.db.Rebind(`UPDATE habits SET archived_at = ?, updated_at = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, at, at, id)
	if err != nil {
		return classifyError("archive habit", err, domain.ErrHabitNotFound)
	}
	return expectOne(res, "archive habit", domain.ErrHabitNotFound)
}

func (r *SQLHabitRepository) UnarchiveHabit(ctx context.Context, id string) error {
	query := r.db.Rebind(`UPDATE habits SET archived_at = NULL, updated_at = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return classifyError("unarchive habit", err, domain.ErrHabitNotFound)
	}
	return expectOne(res, "unarchive habit", domain.ErrHabitNotFound)
}

// DeleteHabit removes the logs and the habit in one transaction, so the
// cascade holds even where foreign keys are not enforced.
func (r *SQLHabitRepository) DeleteHabit(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("delete habit", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM habit_logs WHERE habit_id = ?`), id); err != nil {
		return classifyError("delete habit logs", err, domain.ErrHabitNotFound)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM habits WHERE id = ?`), id)
	if err != nil {
		return classifyError("delete habit", err, domain.ErrHabitNotFound)
	}
	if err := expectOne(res, "delete habit", domain.ErrHabitNotFound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("delete habit", err)
	}
	return nil
}

func (r *SQLHabitRepository) ReorderHabits(ctx context.Context, userID string, orderedIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("reorder habits", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	query := tx.Rebind(`UPDATE habits SET sort_order = ?, updated_at = ? WHERE id = ? AND user_id = ?`)
	for i, id := range orderedIDs {
		res, err := tx.ExecContext(ctx, query, i, now, id, userID)
		if err != nil {
			return classifyError("reorder habits", err, domain.ErrHabitNotFound)
		}
		if err := expectOne(res, "reorder habits", domain.ErrHabitNotFound); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("reorder habits", err)
	}
	return nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectOne(res rowsAffected, op string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
