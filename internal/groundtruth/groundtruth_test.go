package groundtruth

import (
	"testing"
)

func TestParseMessage(t *testing.T) {
	payload := []byte(`{"x":1.5,"y":-2.0,"z":3.25,"frame_id":"earth","stamp_unix_nanos":1700000000000000000}`)

	pt, err := ParseMessage(payload)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if pt.Point.X != 1.5 || pt.Point.Y != -2.0 || pt.Point.Z != 3.25 {
		t.Errorf("Point = %v", pt.Point)
	}
	if pt.FrameID != "earth" {
		t.Errorf("FrameID = %q", pt.FrameID)
	}
	if pt.Stamp.UnixNano() != 1700000000000000000 {
		t.Errorf("Stamp = %v", pt.Stamp)
	}
}

func TestParseMessageMalformed(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("non-JSON payload accepted")
	}
	if _, err := ParseMessage([]byte(`{"x":"east"}`)); err == nil {
		t.Error("string coordinate accepted")
	}
}

func TestNewSubscriberFillsDefaults(t *testing.T) {
	s := NewSubscriber(Config{Broker: "tcp://localhost:1883"}, nil)
	if s.cfg.Topic != "target/ground_truth" {
		t.Errorf("Topic = %q", s.cfg.Topic)
	}
	if s.cfg.ClientID != "targetfusion" {
		t.Errorf("ClientID = %q", s.cfg.ClientID)
	}

	// Explicit values are kept.
	s = NewSubscriber(Config{Topic: "trial/pose", ClientID: "rig-7"}, nil)
	if s.cfg.Topic != "trial/pose" || s.cfg.ClientID != "rig-7" {
		t.Errorf("cfg = %+v", s.cfg)
	}
}
