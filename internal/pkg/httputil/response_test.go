package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]string{"name": "张三 & co"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "张三 & co")
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad today") }, http.StatusBadRequest, "bad_request"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "no customer") }, http.StatusNotFound, "not_found"},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "run in progress") }, http.StatusConflict, "conflict"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, errors.New("disk full")) }, http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Error, "disk full")
		})
	}
}
