package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/ethcast/internal/adapters/storage"
	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_MissingFilesAreEmptyLedger(t *testing.T) {
	fs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	h, err := fs.LoadHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.NewHistory(), h)

	perf, err := fs.LoadPerformance(context.Background())
	require.NoError(t, err)
	assert.Empty(t, perf)
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	h, perf := sampleDocuments()
	require.NoError(t, fs.Save(ctx, h, perf))

	gotH, err := fs.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, h, gotH)

	gotP, err := fs.LoadPerformance(ctx)
	require.NoError(t, err)
	assert.Equal(t, perf, gotP)
}

func TestFileStore_RoundTripShapes(t *testing.T) {
	for _, tc := range roundTripCases() {
		t.Run(tc.name, func(t *testing.T) {
			fs, err := storage.NewFileStore(t.TempDir())
			require.NoError(t, err)

			ctx := context.Background()
			require.NoError(t, tc.history.Validate())
			require.NoError(t, fs.Save(ctx, tc.history, tc.perf))

			gotH, err := fs.LoadHistory(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.history, gotH)

			gotP, err := fs.LoadPerformance(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.perf, gotP)
		})
	}
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	h, perf := sampleDocuments()
	require.NoError(t, fs.Save(context.Background(), h, perf))
	require.NoError(t, fs.SaveHistory(context.Background(), h))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{storage.HistoryDocument, storage.PerformanceDocument}, names)
}

func TestFileStore_CorruptHistory(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated json", `{"predictions": [`},
		{"empty file", ``},
		{"wrong type", `{"predictions": {}, "validations": [], "summary": {}}`},
		{"unknown field", `{"predictions": [], "validations": [], "summary": {}, "extra": 1}`},
		{"missing validations", `{"predictions": [], "summary": {}}`},
		{"negative base price", `{"predictions": [{"id": "a", "created_at": "2026-01-10T12:00:00Z",
			"base_price": -1, "condition": "x",
			"horizons": {"15min": {"target_at": "2026-01-10T12:15:00Z", "ensemble_price": 1, "models": {}, "weights": {}}},
			"validated_horizons": [], "fully_validated": false}], "validations": [], "summary": {}}`},
		{"orphan validation", `{"predictions": [], "validations": [{"prediction_id": "zzz",
			"created_at": "2026-01-10T12:00:00Z", "validated_at": "2026-01-10T12:16:00Z",
			"target_at": "2026-01-10T12:15:00Z", "horizon": "15min", "condition": "x",
			"base_price": 1, "actual_price": 1, "errors": {"ensemble": {"absolute_error": 0, "percent_error": 0, "direction_correct": true}}}],
			"summary": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, storage.HistoryDocument)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			fs, err := storage.NewFileStore(dir)
			require.NoError(t, err)

			_, err = fs.LoadHistory(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrCorruptHistory))
			var corrupt *domain.CorruptHistoryError
			require.True(t, errors.As(err, &corrupt))
			assert.Equal(t, path, corrupt.Document)

			// el fichero corrupto sigue intacto
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(data))
		})
	}
}

func TestFileStore_CorruptPerformance(t *testing.T) {
	dir := t.TempDir()
	body := `{"bull_low_vol": {"linear": {"count": 1, "cumulative_error_pct": 0.5, "cumulative_direction_correct": 3}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.PerformanceDocument), []byte(body), 0o644))

	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	_, err = fs.LoadPerformance(context.Background())
	assert.True(t, errors.Is(err, domain.ErrCorruptHistory))
}

func TestFileStore_FailedWriteKeepsPreviousDocument(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	h, perf := sampleDocuments()
	require.NoError(t, fs.Save(ctx, h, perf))
	before, err := os.ReadFile(fs.HistoryPath())
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	err = fs.SaveHistory(ctx, domain.NewHistory())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))

	after, err := os.ReadFile(fs.HistoryPath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
