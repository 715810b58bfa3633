package telemetry

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	require.NoError(t, err)
	require.NoError(t, InitTelemetrySchema(db))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestStore(t *testing.T) *SQLiteMetricsStore {
	t.Helper()
	s, err := NewSQLiteMetricsStore(setupTestDB(t))
	require.NoError(t, err)
	return s
}

func TestNewSQLiteMetricsStore_NilDB(t *testing.T) {
	_, err := NewSQLiteMetricsStore(nil)
	assert.Error(t, err)
}

func TestSQLiteMetricsStore_ModeCountsAccumulate(t *testing.T) {
	s := newTestStore(t)

	// Given: two flushes on the same day and one on the next
	require.NoError(t, s.SaveModeCounts("2026-03-01", map[QueryMode]int64{ModeRanked: 4, ModeBrowse: 1}))
	require.NoError(t, s.SaveModeCounts("2026-03-01", map[QueryMode]int64{ModeRanked: 2}))
	require.NoError(t, s.SaveModeCounts("2026-03-02", map[QueryMode]int64{ModeNoTerms: 3}))

	// When: reading the first day only
	day, err := s.GetModeCounts("2026-03-01", "2026-03-01")
	require.NoError(t, err)

	// Then: the increments are summed
	assert.Equal(t, int64(6), day[ModeRanked])
	assert.Equal(t, int64(1), day[ModeBrowse])
	assert.Zero(t, day[ModeNoTerms])

	both, err := s.GetModeCounts("2026-03-01", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(3), both[ModeNoTerms])
}

func TestSQLiteMetricsStore_TopTerms(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertTermCounts(map[string]int64{"склад": 3, "зона": 5}))
	require.NoError(t, s.UpsertTermCounts(map[string]int64{"склад": 4}))
	require.NoError(t, s.UpsertTermCounts(nil))

	top, err := s.GetTopTerms(10)
	require.NoError(t, err)
	assert.Equal(t, []TermCount{{"склад", 7}, {"зона", 5}}, top)

	one, err := s.GetTopTerms(1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestSQLiteMetricsStore_ZeroResultQueriesTrimmed(t *testing.T) {
	s := newTestStore(t)

	// Given: more zero-result queries than the table keeps
	var batch []ZeroResultQuery
	for i := 0; i < MaxStoredZeroResults+5; i++ {
		batch = append(batch, ZeroResultQuery{Query: fmt.Sprintf("q%d", i), Timestamp: time.Now()})
	}
	require.NoError(t, s.AddZeroResultQueries(batch))

	// When: reading them all back
	got, err := s.GetZeroResultQueries(1000)
	require.NoError(t, err)

	// Then: only the newest are kept, newest first
	assert.Len(t, got, MaxStoredZeroResults)
	assert.Equal(t, fmt.Sprintf("q%d", MaxStoredZeroResults+4), got[0])
}

func TestSQLiteMetricsStore_LatencyCounts(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveLatencyCounts("2026-03-01", map[LatencyBucket]int64{BucketSub1ms: 10}))
	require.NoError(t, s.SaveLatencyCounts("2026-03-01", map[LatencyBucket]int64{BucketSub1ms: 1, Bucket5ms: 2}))

	got, err := s.GetLatencyCounts("2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, map[LatencyBucket]int64{BucketSub1ms: 11, Bucket5ms: 2}, got)
}
