package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

var (
	_ domain.LogRepository = (*SQLLogRepository)(nil)
	_ domain.Importer      = (*SQLStore)(nil)
)

type SQLLogRepository struct {
	db *sqlx.DB
}

func NewSQLLogRepository(db *sqlx.DB) *SQLLogRepository {
	return &SQLLogRepository{db: db}
}

const logColumns = `id, habit_id, user_id, log_date, status, created_at, updated_at`

// upsertLogQuery relies on the (habit_id, log_date) unique key, so a second
// write for the same cell replaces the first instead of failing.
const upsertLogQuery = `
    INSERT INTO habit_logs (` + logColumns + `)
    VALUES (?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT (habit_id, log_date) DO UPDATE SET
        status = excluded.status,
        updated_at = excluded.updated_at
    WHERE habit_logs.user_id = excluded.user_id`

func (r *SQLLogRepository) GetLogsInRange(ctx context.Context, userID string, start, end domain.Date) ([]*domain.LogEntry, error) {
	query := r.db.Rebind(`
        SELECT ` + logColumns + ` FROM habit_logs
        WHERE user_id = ? AND log_date >= ? AND log_date <= ?
        ORDER BY log_date ASC, habit_id ASC`)

	logs := []*domain.LogEntry{}
	if err := r.db.SelectContext(ctx, &logs, query, userID, start, end); err != nil {
		return nil, classifyError("list logs", err, domain.ErrLogNotFound)
	}
	return logs, nil
}

func (r *SQLLogRepository) UpsertLog(ctx context.Context, userID, habitID string, date domain.Date, status domain.Status) (*domain.LogEntry, error) {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(upsertLogQuery),
		uuid.NewString(), habitID, userID, date, status, now, now)
	if err != nil {
		return nil, classifyError("upsert log", err, domain.ErrHabitNotFound)
	}

	var entry domain.LogEntry
	query := r.db.Rebind(`SELECT ` + logColumns + ` FROM habit_logs WHERE habit_id = ? AND log_date = ?`)
	if err := r.db.GetContext(ctx, &entry, query, habitID, date); err != nil {
		return nil, classifyError("upsert log", err, domain.ErrLogNotFound)
	}
	return &entry, nil
}

func (r *SQLLogRepository) DeleteLog(ctx context.Context, userID, habitID string, date domain.Date) (bool, error) {
	query := r.db.Rebind(`DELETE FROM habit_logs WHERE user_id = ? AND habit_id = ? AND log_date = ?`)

	res, err := r.db.ExecContext(ctx, query, userID, habitID, date)
	if err != nil {
		return false, classifyError("delete log", err, domain.ErrLogNotFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.NewStorageError("delete log", err)
	}
	return n > 0, nil
}

// SQLStore bundles the habit and log repositories over one database and
// adds the transactional bulk import.
type SQLStore struct {
	*SQLHabitRepository
	*SQLLogRepository
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		SQLHabitRepository: NewSQLHabitRepository(db),
		SQLLogRepository:   NewSQLLogRepository(db),
		db:                 db,
	}
}

func (s *SQLStore) DB() *sqlx.DB { return s.db }

// importOwnerBatch bounds the IN list of one ownership lookup.
const importOwnerBatch = 500

// habitOwners maps each existing habit id in ids to its owner.
func habitOwners(ctx context.Context, tx *sqlx.Tx, ids []string) (map[string]string, error) {
	owners := make(map[string]string, len(ids))
	for start := 0; start < len(ids); start += importOwnerBatch {
		batch := ids[start:min(start+importOwnerBatch, len(ids))]
		query, args, err := sqlx.In(`SELECT id, user_id FROM habits WHERE id IN (?)`, batch)
		if err != nil {
			return nil, err
		}

		var rows []struct {
			ID     string `db:"id"`
			UserID string `db:"user_id"`
		}
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
			return nil, err
		}
		for _, r := range rows {
			owners[r.ID] = r.UserID
		}
	}
	return owners, nil
}

// ImportAll upserts habits by id and logs by (habit, date) in a single
// transaction. A habit id owned by another user, or a log for a habit that is
// neither in the batch nor owned by userID, fails the whole import with
// ErrHabitNotFound before anything is written.
func (s *SQLStore) ImportAll(ctx context.Context, userID string, habits []*domain.Habit, logs []*domain.LogEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("import", err)
	}
	defer tx.Rollback()

	incoming := make(map[string]bool, len(habits))
	ids := make([]string, 0, len(habits)+len(logs))
	for _, h := range habits {
		if !incoming[h.ID] {
			incoming[h.ID] = true
			ids = append(ids, h.ID)
		}
	}
	referenced := make(map[string]bool)
	for _, e := range logs {
		if !incoming[e.HabitID] && !referenced[e.HabitID] {
			referenced[e.HabitID] = true
			ids = append(ids, e.HabitID)
		}
	}

	owners, err := habitOwners(ctx, tx, ids)
	if err != nil {
		return domain.NewStorageError("import", err)
	}
	for _, h := range habits {
		if owner, exists := owners[h.ID]; exists && owner != userID {
			return domain.ErrHabitNotFound
		}
	}
	for id := range referenced {
		if owners[id] != userID {
			return domain.ErrHabitNotFound
		}
	}

	habitQuery := `
        INSERT INTO habits (` + habitColumns + `)
        VALUES (:id, :user_id, :name, :icon, :color, :schedule, :start_date, :archived_at, :sort_order, :created_at, :updated_at)
        ON CONFLICT (id) DO UPDATE SET
            name = excluded.name, icon = excluded.icon, color = excluded.color,
            schedule = excluded.schedule, start_date = excluded.start_date,
            archived_at = excluded.archived_at, sort_order = excluded.sort_order,
            updated_at = excluded.updated_at`

	for _, h := range habits {
		row, err := toHabitRow(h)
		if err != nil {
			return domain.NewStorageError("import habit", err)
		}
		row.UserID = userID
		if _, err := tx.NamedExecContext(ctx, habitQuery, row); err != nil {
			return classifyError("import habit", err, domain.ErrHabitNotFound)
		}
	}

	logQuery := tx.Rebind(upsertLogQuery)
	for _, e := range logs {
		_, err := tx.ExecContext(ctx, logQuery,
			e.ID, e.HabitID, userID, e.Date, e.Status, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
		if err != nil {
			return classifyError("import log", err, domain.ErrHabitNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("import", err)
	}
	return nil
}
