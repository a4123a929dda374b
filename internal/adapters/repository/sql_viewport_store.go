package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/viewport"
)

var _ viewport.Store = (*SQLViewportStore)(nil)

type SQLViewportStore struct {
	db *sqlx.DB
}

func NewSQLViewportStore(db *sqlx.DB) *SQLViewportStore {
	return &SQLViewportStore{db: db}
}

type viewportRow struct {
	UserID     string          `db:"user_id"`
	LastOpened domain.Date     `db:"last_opened"`
	OffsetX    sql.NullFloat64 `db:"offset_x"`
	OffsetY    sql.NullFloat64 `db:"offset_y"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// LoadViewport returns the zero state for users that never saved one.
func (s *SQLViewportStore) LoadViewport(ctx context.Context, userID string) (viewport.Saved, error) {
	query := s.db.Rebind(`SELECT user_id, last_opened, offset_x, offset_y, updated_at FROM viewports WHERE user_id = ?`)

	var row viewportRow
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return viewport.Saved{}, nil
		}
		return viewport.Saved{}, domain.NewStorageError("load viewport", err)
	}

	saved := viewport.Saved{LastOpened: row.LastOpened}
	if row.OffsetX.Valid && row.OffsetY.Valid {
		saved.Offset = &viewport.Offset{X: row.OffsetX.Float64, Y: row.OffsetY.Float64}
	}
	return saved, nil
}

func (s *SQLViewportStore) SaveViewport(ctx context.Context, userID string, state viewport.Saved) error {
	row := viewportRow{
		UserID:     userID,
		LastOpened: state.LastOpened,
		UpdatedAt:  time.Now().UTC(),
	}
	if state.Offset != nil {
		row.OffsetX = sql.NullFloat64{Float64: state.Offset.X, Valid: true}
		row.OffsetY = sql.NullFloat64{Float64: state.Offset.Y, Valid: true}
	}

	query := `
        INSERT INTO viewports (user_id, last_opened, offset_x, offset_y, updated_at)
        VALUES (:user_id, :last_opened, :offset_x, :offset_y, :updated_at)
        ON CONFLICT (user_id) DO UPDATE SET
            last_opened = excluded.last_opened,
            offset_x = excluded.offset_x,
            offset_y = excluded.offset_y,
            updated_at = excluded.updated_at`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return domain.NewStorageError("save viewport", err)
	}
	return nil
}
