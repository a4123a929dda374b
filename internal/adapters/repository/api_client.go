package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/viewport"
)

// apiMaxRangeDays mirrors the server's cap on a single GET /logs request.
const apiMaxRangeDays = 3 * 366

// APIClient is a remote storage collaborator talking to the kanso HTTP API.
// The bearer token decides whose data is read and written, so the userID
// arguments of the storage interfaces are not sent.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL, token string, client *http.Client) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		token:   token,
		http:    client,
	}
}

type apiError struct {
	Error string `json:"error"`
}

type habitPayload struct {
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name"`
	Icon      string           `json:"icon,omitempty"`
	Color     string           `json:"color,omitempty"`
	Schedule  *domain.Schedule `json:"schedule_days,omitempty"`
	StartDate domain.Date      `json:"start_date"`
}

func toPayload(h *domain.Habit) habitPayload {
	sched := h.Schedule
	return habitPayload{
		ID:        h.ID,
		Name:      h.Name,
		Icon:      h.Icon,
		Color:     h.Color,
		Schedule:  &sched,
		StartDate: h.StartDate,
	}
}

// do sends one request and decodes a JSON response into out when out is not
// nil. Non-2xx responses are mapped onto the domain error taxonomy.
func (c *APIClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewStorageError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewStorageError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return domain.NewValidationError("request", msg)
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrHabitNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %s", op, domain.ErrUnauthorized, msg)
	}
	return domain.NewStorageError(op, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg))
}

func (c *APIClient) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]*domain.Habit, error) {
	var habits []*domain.Habit
	path := "/habits?include_archived=" + strconv.FormatBool(includeArchived)
	if err := c.do(ctx, "list habits", http.MethodGet, path, nil, &habits); err != nil {
		return nil, err
	}
	domain.SortHabits(habits)
	return habits, nil
}

func (c *APIClient) GetHabit(ctx context.Context, id string) (*domain.Habit, error) {
	var h domain.Habit
	if err := c.do(ctx, "get habit", http.MethodGet, "/habits/"+url.PathEscape(id), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHabit sends the client generated ID so a retried create is a no-op.
// The server assigns the sort order; habit is updated with what was stored.
func (c *APIClient) CreateHabit(ctx context.Context, habit *domain.Habit) error {
	var stored domain.Habit
	if err := c.do(ctx, "create habit", http.MethodPost, "/habits", toPayload(habit), &stored); err != nil {
		return err
	}
	*habit = stored
	return nil
}

func (c *APIClient) UpdateHabit(ctx context.Context, habit *domain.Habit) error {
	p := toPayload(habit)
	p.ID = ""
	var stored domain.Habit
	if err := c.do(ctx, "update habit", http.MethodPut, "/habits/"+url.PathEscape(habit.ID), p, &stored); err != nil {
		return err
	}
	*habit = stored
	return nil
}

// ArchiveHabit lets the server stamp the archive time; at is ignored.
func (c *APIClient) ArchiveHabit(ctx context.Context, id string, at time.Time) error {
	return c.do(ctx, "archive habit", http.MethodPost, "/habits/"+url.PathEscape(id)+"/archive", nil, nil)
}

func (c *APIClient) UnarchiveHabit(ctx context.Context, id string) error {
	return c.do(ctx, "unarchive habit", http.MethodPost, "/habits/"+url.PathEscape(id)+"/unarchive", nil, nil)
}

func (c *APIClient) DeleteHabit(ctx context.Context, id string) error {
	return c.do(ctx, "delete habit", http.MethodDelete, "/habits/"+url.PathEscape(id), nil, nil)
}

func (c *APIClient) ReorderHabits(ctx context.Context, userID string, orderedIDs []string) error {
	body := map[string][]string{"ids": orderedIDs}
	return c.do(ctx, "reorder habits", http.MethodPut, "/habits/order", body, nil)
}

// GetLogsInRange splits long ranges into requests the server accepts.
func (c *APIClient) GetLogsInRange(ctx context.Context, userID string, start, end domain.Date) ([]*domain.LogEntry, error) {
	var all []*domain.LogEntry
	for from := start; !from.After(end); from = from.AddDays(apiMaxRangeDays) {
		to := domain.MinDate(end, from.AddDays(apiMaxRangeDays-1))

		q := url.Values{}
		q.Set("from", from.String())
		q.Set("to", to.String())

		var chunk []*domain.LogEntry
		if err := c.do(ctx, "get logs", http.MethodGet, "/logs?"+q.Encode(), nil, &chunk); err != nil {
			return nil, err
		}
		all = append(all, chunk...)
	}
	domain.SortLogs(all)
	return all, nil
}

func logPath(habitID string, date domain.Date) string {
	return "/logs/" + url.PathEscape(habitID) + "/" + date.String()
}

func (c *APIClient) UpsertLog(ctx context.Context, userID, habitID string, date domain.Date, status domain.Status) (*domain.LogEntry, error) {
	var e domain.LogEntry
	body := map[string]domain.Status{"status": status}
	if err := c.do(ctx, "upsert log", http.MethodPut, logPath(habitID, date), body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *APIClient) DeleteLog(ctx context.Context, userID, habitID string, date domain.Date) (bool, error) {
	var res struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.do(ctx, "delete log", http.MethodDelete, logPath(habitID, date), nil, &res); err != nil {
		return false, err
	}
	return res.Deleted, nil
}

// ImportAll posts an already validated batch as a backup document.
func (c *APIClient) ImportAll(ctx context.Context, userID string, habits []*domain.Habit, logs []*domain.LogEntry) error {
	body := struct {
		SchemaVersion int                `json:"schemaVersion"`
		Habits        []*domain.Habit    `json:"habits"`
		Logs          []*domain.LogEntry `json:"logs"`
	}{1, habits, logs}
	return c.do(ctx, "import", http.MethodPost, "/import", body, nil)
}

// DownloadExport streams the server generated backup into w.
func (c *APIClient) DownloadExport(ctx context.Context, w io.Writer) error {
	var raw json.RawMessage
	if err := c.do(ctx, "export", http.MethodGet, "/export", nil, &raw); err != nil {
		return err
	}
	_, err := w.Write(raw)
	return err
}

func (c *APIClient) LoadViewport(ctx context.Context, userID string) (viewport.Saved, error) {
	var state viewport.Saved
	err := c.do(ctx, "load viewport", http.MethodGet, "/viewport/state", nil, &state)
	return state, err
}

func (c *APIClient) SaveViewport(ctx context.Context, userID string, state viewport.Saved) error {
	return c.do(ctx, "save viewport", http.MethodPut, "/viewport/state", state, nil)
}

var (
	_ domain.Store    = (*APIClient)(nil)
	_ domain.Importer = (*APIClient)(nil)
	_ viewport.Store  = (*APIClient)(nil)
)
