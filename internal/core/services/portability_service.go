package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

const SchemaVersion = 1

var (
	exportFrom = domain.NewDate(1970, time.January, 1)
	exportTo   = domain.NewDate(9999, time.December, 31)
)

// ExportFile is the versioned backup document.
type ExportFile struct {
	SchemaVersion int                `json:"schemaVersion"`
	ExportedAt    time.Time          `json:"exportedAt"`
	Habits        []*domain.Habit    `json:"habits"`
	Logs          []*domain.LogEntry `json:"logs"`
}

type ImportResult struct {
	Habits            int `json:"habits"`
	Logs              int `json:"logs"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
}

// ImportStore is the storage a backup is read from and restored into.
type ImportStore interface {
	domain.Store
	domain.Importer
}

type PortabilityService struct {
	store ImportStore
}

func NewPortabilityService(store ImportStore) *PortabilityService {
	return &PortabilityService{
		store: store,
	}
}

// Export collects every habit, archived ones included, and every log of the
// user in canonical order.
func (s *PortabilityService) Export(ctx context.Context, userID string) (*ExportFile, error) {
	habits, err := s.store.ListHabits(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	domain.SortHabits(habits)

	logs, err := s.store.GetLogsInRange(ctx, userID, exportFrom, exportTo)
	if err != nil {
		return nil, err
	}
	domain.SortLogs(logs)

	return &ExportFile{
		SchemaVersion: SchemaVersion,
		ExportedAt:    time.Now().UTC(),
		Habits:        habits,
		Logs:          logs,
	}, nil
}

// Decode parses a backup document without validating it.
func Decode(r io.Reader) (*ExportFile, error) {
	var f ExportFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, domain.NewValidationError("payload", fmt.Sprintf("malformed json: %v", err))
	}
	return &f, nil
}

// Prepare validates a decoded backup for userID and returns the habits and
// logs to apply. Entries sharing (habit, date) collapse to the last one in
// payload order; the number dropped is reported in the result. Logs may point
// at habits outside the payload; Import resolves those against the store.
func Prepare(f *ExportFile, userID string) ([]*domain.Habit, []*domain.LogEntry, ImportResult, error) {
	var res ImportResult
	if f == nil {
		return nil, nil, res, domain.NewValidationError("payload", "empty payload")
	}
	if f.SchemaVersion != SchemaVersion {
		return nil, nil, res, domain.NewValidationError("schemaVersion",
			fmt.Sprintf("unsupported schema version %d", f.SchemaVersion))
	}

	now := time.Now().UTC()
	var errs domain.ValidationErrors

	habits := make([]*domain.Habit, 0, len(f.Habits))
	known := make(map[string]bool, len(f.Habits))
	for i, in := range f.Habits {
		if in == nil {
			errs = append(errs, domain.NewValidationError(fmt.Sprintf("habits[%d]", i), "null habit"))
			continue
		}
		h := *in
		if strings.TrimSpace(h.ID) == "" {
			h.ID = uuid.NewString()
		}
		h.UserID = userID
		if h.Icon == "" {
			h.Icon = domain.DefaultIcon
		}
		if h.CreatedAt.IsZero() {
			h.CreatedAt = now
		}
		if h.UpdatedAt.IsZero() {
			h.UpdatedAt = h.CreatedAt
		}
		if err := h.Validate(); err != nil {
			errs = append(errs, prefixed(fmt.Sprintf("habits[%d]", i), err)...)
			continue
		}
		if known[h.ID] {
			errs = append(errs, domain.NewValidationError(fmt.Sprintf("habits[%d].id", i), "duplicate habit id "+h.ID))
			continue
		}
		known[h.ID] = true
		habits = append(habits, &h)
	}

	order := make([]string, 0, len(f.Logs))
	byKey := make(map[string]*domain.LogEntry, len(f.Logs))
	for i, in := range f.Logs {
		field := fmt.Sprintf("logs[%d]", i)
		if in == nil {
			errs = append(errs, domain.NewValidationError(field, "null log entry"))
			continue
		}
		e := *in
		if err := e.Validate(); err != nil {
			errs = append(errs, prefixed(field, err)...)
			continue
		}
		if strings.TrimSpace(e.ID) == "" {
			e.ID = uuid.NewString()
		}
		e.UserID = userID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = e.CreatedAt
		}

		key := domain.LogKey(e.HabitID, e.Date)
		if _, dup := byKey[key]; dup {
			res.DuplicatesRemoved++
		} else {
			order = append(order, key)
		}
		byKey[key] = &e
	}

	if err := errs.OrNil(); err != nil {
		return nil, nil, ImportResult{}, err
	}

	logs := make([]*domain.LogEntry, 0, len(order))
	for _, k := range order {
		logs = append(logs, byKey[k])
	}

	res.Habits = len(habits)
	res.Logs = len(logs)
	return habits, logs, res, nil
}

// Import validates the whole payload first and applies nothing unless every
// habit and log is well formed and every referenced habit is either in the
// file or already owned by userID.
func (s *PortabilityService) Import(ctx context.Context, userID string, f *ExportFile) (*ImportResult, error) {
	habits, logs, res, err := Prepare(f, userID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, userID, habits, logs); err != nil {
		return nil, err
	}

	if err := s.store.ImportAll(ctx, userID, habits, logs); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *PortabilityService) checkOwnership(ctx context.Context, userID string, habits []*domain.Habit, logs []*domain.LogEntry) error {
	var errs domain.ValidationErrors
	owned := make(map[string]bool, len(habits))

	for i, h := range habits {
		existing, err := s.store.GetHabit(ctx, h.ID)
		switch {
		case domain.IsNotFound(err):
		case err != nil:
			return err
		case existing.UserID != userID:
			errs = append(errs, domain.NewValidationError(fmt.Sprintf("habits[%d].id", i), "id already in use "+h.ID))
			continue
		}
		owned[h.ID] = true
	}

	checked := make(map[string]bool)
	for i, e := range logs {
		if owned[e.HabitID] {
			continue
		}
		if !checked[e.HabitID] {
			checked[e.HabitID] = true
			existing, err := s.store.GetHabit(ctx, e.HabitID)
			switch {
			case domain.IsNotFound(err):
			case err != nil:
				return err
			case existing.UserID == userID:
				owned[e.HabitID] = true
				continue
			}
		}
		errs = append(errs, domain.NewValidationError(fmt.Sprintf("logs[%d].habit_id", i), "unknown habit "+e.HabitID))
	}

	return errs.OrNil()
}

func prefixed(prefix string, err error) domain.ValidationErrors {
	switch e := err.(type) {
	case domain.ValidationErrors:
		out := make(domain.ValidationErrors, 0, len(e))
		for _, ve := range e {
			out = append(out, domain.NewValidationError(prefix+"."+ve.Field, ve.Reason))
		}
		return out
	case *domain.ValidationError:
		return domain.ValidationErrors{domain.NewValidationError(prefix+"."+e.Field, e.Reason)}
	}
	return domain.ValidationErrors{domain.NewValidationError(prefix, err.Error())}
}
