// Package frames provides the transform-lookup capability consumed by the
// fusion engine. The engine asks for the transform mapping a source frame
// into a target frame and receives either a valid rigid transform or a
// typed lookup error; it never sees how transforms are produced.
package frames

import (
	"fmt"
	"sync"

	"github.com/banshee-data/targetfusion/internal/geom"
)

// Provider resolves the rigid transform that maps points in the source
// frame into the target frame. Lookups are synchronous and may consult an
// internal cache; a failed lookup is a recoverable per-cycle condition.
type Provider interface {
	Lookup(target, source string) (geom.Transform, error)
}

// LookupError reports a failed transform lookup. Callers branch on this
// type to skip the affected detection or cloud without aborting the cycle.
type LookupError struct {
	Target string
	Source string
	Reason string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no transform %s<-%s: %s", e.Target, e.Source, e.Reason)
}

// StaticBuffer is a Provider backed by an explicit table of transforms.
// It serves simulation, replay, and tests; a live deployment feeds it from
// the platform's state estimator. Set replaces any previous entry for the
// same frame pair.
type StaticBuffer struct {
	mu sync.RWMutex
	tf map[[2]string]geom.Transform
}

// NewStaticBuffer returns an empty buffer.
func NewStaticBuffer() *StaticBuffer {
	return &StaticBuffer{tf: make(map[[2]string]geom.Transform)}
}

// Set stores the transform mapping source-frame points into the target
// frame. Invalid matrices are rejected so a bad upstream sample cannot
// poison later lookups.
func (b *StaticBuffer) Set(target, source string, t geom.Transform) error {
	if !t.IsValid() {
		return fmt.Errorf("set %s<-%s: not a rigid transform", target, source)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tf[[2]string{target, source}] = t
	return nil
}

// Lookup implements Provider.
func (b *StaticBuffer) Lookup(target, source string) (geom.Transform, error) {
	if target == source {
		return geom.Identity(), nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tf[[2]string{target, source}]
	if !ok {
		return geom.Transform{}, &LookupError{Target: target, Source: source, Reason: "frame pair unknown"}
	}
	return t, nil
}
