package fusiondb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/targetfusion/internal/fusion"
	"github.com/banshee-data/targetfusion/internal/geom"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "fusion_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testCandidate(id int64, stamp time.Time) *fusion.Candidate {
	p := geom.NewStampedPoint(geom.Vec3{X: 1, Y: 2, Z: 3}, "earth", stamp)
	return &fusion.Candidate{
		ID:               id,
		Class:            "box",
		Confidence:       0.9,
		Raw:              p,
		Filtered:         p,
		Compensated:      p,
		CreatedUnixNanos: stamp.UnixNano(),
		UpdatedUnixNanos: stamp.UnixNano(),
		Observations:     1,
	}
}

func TestOpenMigratesSchema(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty, "schema left dirty after Open")
	assert.NotZero(t, version, "no migration applied")

	// Re-running against a current schema is a no-op.
	assert.NoError(t, db.MigrateUp())
}

func TestStoreRecordsRun(t *testing.T) {
	db := openTestDB(t)

	s, err := NewStore(db, fusion.DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, s.RunID())

	// Two stores on one DB are distinct runs.
	s2, err := NewStore(db, fusion.DefaultConfig())
	require.NoError(t, err)
	assert.NotEqual(t, s.RunID(), s2.RunID())
}

func TestRecordAndQueryCandidates(t *testing.T) {
	db := openTestDB(t)
	s, err := NewStore(db, fusion.DefaultConfig())
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.RecordCandidate(testCandidate(1, now)))
	require.NoError(t, s.RecordCandidate(testCandidate(2, now.Add(time.Second))))
	// Replay of the same candidate is a no-op, not an error.
	require.NoError(t, s.RecordCandidate(testCandidate(1, now)))

	rows, err := s.GetCandidates()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].CandidateID)
	assert.Equal(t, int64(2), rows[1].CandidateID)
	assert.Equal(t, "box", rows[0].Class)
	assert.Equal(t, s.RunID(), rows[0].RunID)
}

func TestRecordAndQueryObservations(t *testing.T) {
	db := openTestDB(t)
	s, err := NewStore(db, fusion.DefaultConfig())
	require.NoError(t, err)

	t0 := time.Now()
	c := testCandidate(1, t0)
	require.NoError(t, s.RecordCandidate(c))

	for i := 0; i < 3; i++ {
		c.UpdatedUnixNanos = t0.Add(time.Duration(i) * time.Second).UnixNano()
		c.Filtered.Point.Z = 3 + float64(i)
		require.NoError(t, s.RecordObservation(fusion.PhaseVisualWithDepth, c, "bundle"))
	}

	rows, err := s.GetObservations(0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Less(t, rows[0].TSUnixNanos, rows[2].TSUnixNanos, "observations not in time order")

	first := rows[0]
	assert.Equal(t, int64(1), first.CandidateID)
	assert.Equal(t, "visual_detection_with_depth", first.Phase)
	assert.Equal(t, "bundle", first.Source)
	assert.Equal(t, 0.9, first.Confidence)
	assert.Equal(t, 1.0, first.FilteredX)
	assert.Equal(t, 2.0, first.FilteredY)
	assert.Equal(t, 3.0, first.FilteredZ)

	limited, err := s.GetObservations(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunsAreIsolated(t *testing.T) {
	db := openTestDB(t)
	s1, err := NewStore(db, fusion.DefaultConfig())
	require.NoError(t, err)
	s2, err := NewStore(db, fusion.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, s1.RecordCandidate(testCandidate(1, time.Now())))

	rows, err := s2.GetCandidates()
	require.NoError(t, err)
	assert.Empty(t, rows, "run 2 sees candidates from run 1")
}
