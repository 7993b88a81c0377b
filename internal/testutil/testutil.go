// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/targetfusion/internal/camera"
	"github.com/banshee-data/targetfusion/internal/geom"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// TestIntrinsics returns a VGA pinhole model with round numbers so
// back-projection results are easy to compute by hand.
func TestIntrinsics() camera.Intrinsics {
	return camera.Intrinsics{
		Fx:     500,
		Fy:     500,
		Cx:     320,
		Cy:     240,
		Width:  640,
		Height: 480,
	}
}

// UniformDepth returns a depth image of the given size with every pixel at
// depth d.
func UniformDepth(width, height int, d float32) *camera.DepthImage {
	img := camera.NewDepthImage(width, height)
	for i := range img.Data {
		img.Data[i] = d
	}
	return img
}

// ClusterAround returns n points jittered deterministically around center
// within the given spread, for exercising radius filters.
func ClusterAround(center geom.Vec3, n int, spread float64) []geom.Vec3 {
	pts := make([]geom.Vec3, n)
	for i := range pts {
		// Deterministic jitter, no randomness needed in tests.
		f := float64(i%7)/7.0 - 0.5
		pts[i] = geom.Vec3{
			X: center.X + f*spread,
			Y: center.Y - f*spread/2,
			Z: center.Z + float64(i%3)*spread/4,
		}
	}
	return pts
}
