package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"13812345678", "138****5678"},
		{"+86 138-1234-5678", "138****5678"},
		{"12345", "****"},
		{"", "****"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactPhone(tt.in))
		})
	}
}

func TestLogRedactsPhones(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Info("customer scored", "phone", "13812345678", "note", "call 13987654321 today", "score", 88.5)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "customer scored", entry["msg"])
	assert.Equal(t, "138****5678", entry["phone"])
	assert.Equal(t, "call 139****4321 today", entry["note"])
	assert.Equal(t, 88.5, entry["score"])
}

func TestRedactionOff(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetRedactPII(false)
	defer func() {
		SetOutput(nil)
		SetRedactPII(true)
	}()

	Info("lookup", "phone", "13812345678")
	assert.Contains(t, buf.String(), `"phone":"13812345678"`)
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	log := With("run_id", "r-1").With("day", "2024-06-15")
	log.Warn("sink failed", "error", errors.New("disk full"), "odd")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "r-1", entry["run_id"])
	assert.Equal(t, "2024-06-15", entry["day"])
	assert.Equal(t, "disk full", entry["error"])
	assert.Equal(t, "odd", entry["!extra"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(WARN)
	defer func() {
		SetOutput(nil)
		SetLevel(INFO)
	}()

	Info("dropped")
	assert.Zero(t, buf.Len())
	Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}
