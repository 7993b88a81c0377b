package fusion

import (
	"github.com/banshee-data/targetfusion/internal/geom"
)

// Store owns the set of tracked candidates. It is not safe for concurrent
// use on its own; the engine serializes all access (see Engine).
type Store struct {
	candidates []*Candidate
	nextID     int64
}

// NewStore returns an empty candidate store. IDs start at 1.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// MatchOrCreate associates an incoming global-frame estimate with an
// existing candidate or creates a new one. Among candidates sharing the
// class label it picks the nearest by Euclidean distance from the primary
// position view; the match is accepted only within threshold meters.
//
// On a match the confidence is smoothed, (confidence+score)/2, while the
// position is overwritten, not averaged. The asymmetry is deliberate:
// positional responsiveness over confidence jitter.
//
// Returns the candidate and whether it was created by this call.
func (s *Store) MatchOrCreate(class string, pt geom.StampedPoint, score, threshold float64) (*Candidate, bool) {
	var best *Candidate
	bestDist := threshold
	for _, c := range s.candidates {
		if c.Class != class {
			continue
		}
		d := geom.Distance(c.Position().Point, pt.Point)
		if d <= bestDist {
			bestDist = d
			best = c
		}
	}

	now := pt.Stamp.UnixNano()
	if best != nil {
		best.Confidence = (best.Confidence + score) / 2
		best.Raw = pt
		best.Filtered = pt
		best.Compensated = pt
		best.UpdatedUnixNanos = now
		best.Observations++
		return best, false
	}

	c := &Candidate{
		ID:               s.nextID,
		Class:            class,
		Confidence:       score,
		Raw:              pt,
		Filtered:         pt,
		Compensated:      pt,
		CreatedUnixNanos: now,
		UpdatedUnixNanos: now,
		Observations:     1,
	}
	s.nextID++
	s.candidates = append(s.candidates, c)
	return c, true
}

// Best returns the current best candidate under the given policy, or nil
// when the store is empty. The result is a reference into the store, never
// a separately owned copy; it is recomputed on every call.
func (s *Store) Best(policy BestCandidatePolicy) *Candidate {
	var best *Candidate
	for _, c := range s.candidates {
		if best == nil {
			best = c
			continue
		}
		switch policy {
		case BestHighestConfidence:
			if c.Confidence > best.Confidence {
				best = c
			}
		default: // BestMostRecent
			if c.UpdatedUnixNanos > best.UpdatedUnixNanos ||
				(c.UpdatedUnixNanos == best.UpdatedUnixNanos && c.ID > best.ID) {
				best = c
			}
		}
	}
	return best
}

// Get returns the candidate with the given ID, or nil.
func (s *Store) Get(id int64) *Candidate {
	for _, c := range s.candidates {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// All returns the candidates in creation order. The slice is a copy; the
// elements are live references.
func (s *Store) All() []*Candidate {
	out := make([]*Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Len returns the number of candidates.
func (s *Store) Len() int { return len(s.candidates) }

// ExpireOlderThan removes candidates whose last update precedes
// cutoffNanos and returns how many were removed. IDs of removed
// candidates are never reused.
func (s *Store) ExpireOlderThan(cutoffNanos int64) int {
	kept := s.candidates[:0]
	removed := 0
	for _, c := range s.candidates {
		if c.UpdatedUnixNanos < cutoffNanos {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	s.candidates = kept
	return removed
}
