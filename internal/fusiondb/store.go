package fusiondb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/targetfusion/internal/fusion"
)

// Store records one fusion run. It implements fusion.Recorder.
type Store struct {
	db    *DB
	runID string
}

// NewStore opens a new run, persisting the engine configuration for later
// comparison between runs.
func NewStore(db *DB, cfg fusion.Config) (*Store, error) {
	runID := uuid.NewString()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal run config: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO fusion_runs (id, started_unix_nanos, config_json) VALUES (?, ?, ?)`,
		runID, time.Now().UnixNano(), string(cfgJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("insert fusion run: %w", err)
	}

	return &Store{db: db, runID: runID}, nil
}

// RunID returns the run identifier.
func (s *Store) RunID() string { return s.runID }

// RecordCandidate persists a newly created candidate.
func (s *Store) RecordCandidate(c *fusion.Candidate) error {
	_, err := s.db.Exec(
		`INSERT INTO candidates (run_id, candidate_id, class, created_unix_nanos)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (run_id, candidate_id) DO NOTHING`,
		s.runID, c.ID, c.Class, c.CreatedUnixNanos,
	)
	if err != nil {
		return fmt.Errorf("insert candidate %d: %w", c.ID, err)
	}
	return nil
}

// RecordObservation persists one per-cycle observation of the best
// candidate.
func (s *Store) RecordObservation(phase fusion.Phase, c *fusion.Candidate, source string) error {
	_, err := s.db.Exec(
		`INSERT INTO observations (
			run_id, candidate_id, ts_unix_nanos, phase, source, confidence,
			raw_x, raw_y, raw_z,
			filtered_x, filtered_y, filtered_z,
			compensated_x, compensated_y, compensated_z
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, c.ID, c.UpdatedUnixNanos, string(phase), source, c.Confidence,
		c.Raw.Point.X, c.Raw.Point.Y, c.Raw.Point.Z,
		c.Filtered.Point.X, c.Filtered.Point.Y, c.Filtered.Point.Z,
		c.Compensated.Point.X, c.Compensated.Point.Y, c.Compensated.Point.Z,
	)
	if err != nil {
		return fmt.Errorf("insert observation for candidate %d: %w", c.ID, err)
	}
	return nil
}

// CandidateRow is a persisted candidate record.
type CandidateRow struct {
	RunID            string
	CandidateID      int64
	Class            string
	CreatedUnixNanos int64
}

// ObservationRow is a persisted observation record.
type ObservationRow struct {
	CandidateID int64
	TSUnixNanos int64
	Phase       string
	Source      string
	Confidence  float64
	FilteredX   float64
	FilteredY   float64
	FilteredZ   float64
}

// GetCandidates returns the candidates of a run in creation order.
func (s *Store) GetCandidates() ([]CandidateRow, error) {
	rows, err := s.db.Query(
		`SELECT run_id, candidate_id, class, created_unix_nanos
		 FROM candidates WHERE run_id = ? ORDER BY candidate_id`,
		s.runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []CandidateRow
	for rows.Next() {
		var r CandidateRow
		if err := rows.Scan(&r.RunID, &r.CandidateID, &r.Class, &r.CreatedUnixNanos); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetObservations returns up to limit observations of the run in time
// order. limit <= 0 means no limit.
func (s *Store) GetObservations(limit int) ([]ObservationRow, error) {
	query := `SELECT candidate_id, ts_unix_nanos, phase, source, confidence,
			filtered_x, filtered_y, filtered_z
		 FROM observations WHERE run_id = ? ORDER BY ts_unix_nanos`
	args := []interface{}{s.runID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []ObservationRow
	for rows.Next() {
		var r ObservationRow
		if err := rows.Scan(&r.CandidateID, &r.TSUnixNanos, &r.Phase, &r.Source, &r.Confidence,
			&r.FilteredX, &r.FilteredY, &r.FilteredZ); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
