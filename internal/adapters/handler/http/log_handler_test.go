package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

func TestLogHandler(t *testing.T) {
	srv := setupServer(t)
	h := srv.createHabit(t, "user-1", `{"name": "Walk", "start_date": "2024-06-01"}`)
	cell := "/api/v1/logs/" + h.ID + "/2024-06-10"

	t.Run("Success: Set then overwrite the same cell", func(t *testing.T) {
		w := srv.do(t, http.MethodPut, cell, `{"status": "completed"}`, "user-1")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var first domain.LogEntry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

		w = srv.do(t, http.MethodPut, cell, `{"status": "skipped"}`, "user-1")
		require.Equal(t, http.StatusOK, w.Code)
		var second domain.LogEntry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, domain.StatusSkipped, second.Status)
	})

	t.Run("Success: List range", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/logs?from=2024-06-01&to=2024-06-30", "", "user-1")

		assert.Equal(t, http.StatusOK, w.Code)
		var logs []domain.LogEntry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
		require.Len(t, logs, 1)
		assert.Equal(t, "2024-06-10", logs[0].Date.String())
	})

	t.Run("Success: Clear reports whether anything was removed", func(t *testing.T) {
		w := srv.do(t, http.MethodDelete, cell, "", "user-1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"deleted": true}`, w.Body.String())

		w = srv.do(t, http.MethodDelete, cell, "", "user-1")
		assert.JSONEq(t, `{"deleted": false}`, w.Body.String())
	})

	t.Run("Fail: Bad input", func(t *testing.T) {
		cases := []struct {
			method, path, body string
		}{
			{http.MethodPut, cell, `{"status": "done"}`},
			{http.MethodPut, cell, `{}`},
			{http.MethodPut, "/api/v1/logs/" + h.ID + "/2024-13-01", `{"status": "completed"}`},
			{http.MethodGet, "/api/v1/logs?from=2024-06-30&to=2024-06-01", ""},
			{http.MethodGet, "/api/v1/logs?from=yesterday", ""},
		}
		for _, tc := range cases {
			w := srv.do(t, tc.method, tc.path, tc.body, "user-1")
			assert.Equal(t, http.StatusBadRequest, w.Code, tc.method+" "+tc.path)
		}
	})

	t.Run("Fail: 404 Other user's habit", func(t *testing.T) {
		w := srv.do(t, http.MethodPut, cell, `{"status": "completed"}`, "user-2")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
