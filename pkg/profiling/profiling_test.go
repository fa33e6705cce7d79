package profiling

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	e := echo.New()
	Register(e)

	tests := []struct {
		path string
		want int
	}{
		{"/debug/memory", http.StatusOK},
		{"/debug/pprof/cmdline", http.StatusOK},
		{"/debug/pprof/goroutine", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetMemoryStats(t *testing.T) {
	e := echo.New()
	Register(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/memory", nil))

	var stats MemoryStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.SysMB)
	assert.NotEmpty(t, stats.Timestamp)
}
