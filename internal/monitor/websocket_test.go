package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/targetfusion/internal/fusion"
	"github.com/banshee-data/targetfusion/internal/geom"
)

func TestPoseHubBroadcast(t *testing.T) {
	h := newPoseHub()
	ch := h.subscribe()

	h.broadcast(PoseRecord{Kind: fusion.PoseBest, CandidateID: 5})

	select {
	case rec := <-ch:
		if rec.CandidateID != 5 {
			t.Errorf("record = %+v", rec)
		}
	default:
		t.Fatal("no record delivered")
	}

	h.unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}
	// Idempotent.
	h.unsubscribe(ch)
}

func TestPoseHubDropsSlowClient(t *testing.T) {
	h := newPoseHub()
	ch := h.subscribe()

	// Fill the client buffer without draining, then one more.
	for i := 0; i < 65; i++ {
		h.broadcast(PoseRecord{CandidateID: int64(i)})
	}

	// The overflowing broadcast closed the channel; draining ends.
	n := 0
	for range ch {
		n++
	}
	if n != 64 {
		t.Errorf("drained %d records, want the 64 buffered", n)
	}

	h.mu.Lock()
	remaining := len(h.clients)
	h.mu.Unlock()
	if remaining != 0 {
		t.Errorf("slow client still subscribed")
	}
}

func TestPoseSocketStreamsRecords(t *testing.T) {
	ws, mux := newTestServer(&fakeEngine{})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/pose"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the subscription.
	time.Sleep(50 * time.Millisecond)
	ws.PublishPose(fusion.PoseBest, geom.NewStampedPoint(geom.Vec3{X: 7}, "earth", time.Now()), 1, 0.9)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var rec PoseRecord
	if err := conn.ReadJSON(&rec); err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec.Kind != fusion.PoseBest || rec.Position.X != 7 {
		t.Errorf("record = %+v", rec)
	}
}
