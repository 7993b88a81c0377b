package camera

import (
	"errors"
	"math"
	"testing"
)

func testIntrinsics() Intrinsics {
	return Intrinsics{Fx: 500, Fy: 500, Cx: 320, Cy: 240, Width: 640, Height: 480}
}

func uniformDepth(width, height int, d float32) *DepthImage {
	img := NewDepthImage(width, height)
	for i := range img.Data {
		img.Data[i] = d
	}
	return img
}

func TestEstimatePointAtPrincipalPoint(t *testing.T) {
	depth := uniformDepth(640, 480, 2.0)
	det := Detection2D{CenterX: 320, CenterY: 240, Class: "box", Score: 0.9}

	p, err := EstimatePoint(depth, det, testIntrinsics())
	if err != nil {
		t.Fatalf("EstimatePoint error: %v", err)
	}
	if p.X != 0 || p.Y != 0 || p.Z != 2.0 {
		t.Errorf("point = %v, want (0,0,2)", p)
	}
}

func TestEstimatePointOffCenter(t *testing.T) {
	depth := uniformDepth(640, 480, 2.0)
	det := Detection2D{CenterX: 420, CenterY: 340}

	p, err := EstimatePoint(depth, det, testIntrinsics())
	if err != nil {
		t.Fatalf("EstimatePoint error: %v", err)
	}
	// (420-320)*2/500 = 0.4 on both axes.
	if math.Abs(p.X-0.4) > 1e-12 || math.Abs(p.Y-0.4) > 1e-12 {
		t.Errorf("point = %v, want (0.4,0.4,2)", p)
	}
	if p.Z != 2.0 {
		t.Errorf("z = %f, want exactly the sampled depth", p.Z)
	}
}

func TestEstimatePointRoundsCenter(t *testing.T) {
	depth := uniformDepth(640, 480, 1.0)
	depth.Set(100, 100, 3.0)

	det := Detection2D{CenterX: 99.7, CenterY: 100.2}
	p, err := EstimatePoint(depth, det, testIntrinsics())
	if err != nil {
		t.Fatalf("EstimatePoint error: %v", err)
	}
	if p.Z != 3.0 {
		t.Errorf("z = %f, want depth at rounded pixel (100,100)", p.Z)
	}
}

func TestEstimatePointInvalidDepth(t *testing.T) {
	cases := []struct {
		name string
		d    float32
	}{
		{"zero", 0},
		{"positive infinity", float32(math.Inf(1))},
		{"negative infinity", float32(math.Inf(-1))},
		{"nan", float32(math.NaN())},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			depth := uniformDepth(640, 480, tc.d)
			_, err := EstimatePoint(depth, Detection2D{CenterX: 320, CenterY: 240}, testIntrinsics())
			if !errors.Is(err, ErrInvalidDepth) {
				t.Errorf("err = %v, want ErrInvalidDepth", err)
			}
		})
	}
}

func TestEstimatePointOutsideImage(t *testing.T) {
	depth := uniformDepth(640, 480, 2.0)
	for _, det := range []Detection2D{
		{CenterX: -1, CenterY: 240},
		{CenterX: 640, CenterY: 240},
		{CenterX: 320, CenterY: 480},
	} {
		if _, err := EstimatePoint(depth, det, testIntrinsics()); !errors.Is(err, ErrOutsideImage) {
			t.Errorf("center (%v,%v): err = %v, want ErrOutsideImage", det.CenterX, det.CenterY, err)
		}
	}
}

func TestDepthImageFromLengthCheck(t *testing.T) {
	if _, err := DepthImageFrom(4, 4, make([]float32, 15)); err == nil {
		t.Error("expected error for short buffer")
	}
	img, err := DepthImageFrom(4, 4, make([]float32, 16))
	if err != nil {
		t.Fatalf("DepthImageFrom error: %v", err)
	}
	if !img.Contains(3, 3) || img.Contains(4, 3) {
		t.Error("Contains bounds wrong")
	}
}

func TestCalibrationFirstAdoptionWins(t *testing.T) {
	c := NewCalibration()

	first := testIntrinsics()
	adopted, err := c.Adopt(first)
	if err != nil || !adopted {
		t.Fatalf("first Adopt = (%v, %v), want (true, nil)", adopted, err)
	}

	second := testIntrinsics()
	second.Fx = 999
	adopted, err = c.Adopt(second)
	if err != nil {
		t.Fatalf("second Adopt error: %v", err)
	}
	if adopted {
		t.Error("second Adopt replaced the calibration")
	}

	got, ok := c.Get()
	if !ok || got.Fx != 500 {
		t.Errorf("Get = (%+v, %v), want first calibration", got, ok)
	}
}

func TestCalibrationRejectsInvalid(t *testing.T) {
	c := NewCalibration()
	if _, err := c.Adopt(Intrinsics{}); err == nil {
		t.Fatal("expected error for invalid intrinsics")
	}
	if _, ok := c.Get(); ok {
		t.Error("invalid intrinsics were adopted")
	}
}

func TestCalibrationReset(t *testing.T) {
	c := NewCalibration()
	if _, err := c.Adopt(testIntrinsics()); err != nil {
		t.Fatal(err)
	}
	c.Reset()
	if _, ok := c.Get(); ok {
		t.Error("calibration survived Reset")
	}

	adopted, err := c.Adopt(testIntrinsics())
	if err != nil || !adopted {
		t.Errorf("Adopt after Reset = (%v, %v), want (true, nil)", adopted, err)
	}
}

func TestCalibrationCopiesDistortion(t *testing.T) {
	c := NewCalibration()
	in := testIntrinsics()
	in.Distortion = []float64{0.1, -0.2, 0.0, 0.0, 0.05}
	if _, err := c.Adopt(in); err != nil {
		t.Fatal(err)
	}

	in.Distortion[0] = 99
	got, _ := c.Get()
	if got.Distortion[0] != 0.1 {
		t.Error("adopted distortion aliases caller slice")
	}
}
