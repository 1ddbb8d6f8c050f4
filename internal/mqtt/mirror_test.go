package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/smazurov/pinnode/internal/events"
)

func waitMessages(t *testing.T, fake *fakeClient, n int) []published {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs := fake.messages()
		if len(msgs) >= n {
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d messages, want %d", len(msgs), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMirrorPublishesEvents(t *testing.T) {
	bus := events.New()
	fake := &fakeClient{}
	m := NewMirror(bus, enabledClient(fake, "bench"), discardLogger())
	m.Start(context.Background())
	defer m.Stop()

	bus.Publish(events.PinChangedEvent{Pin: 15, High: true, Timestamp: "2025-01-27T10:30:00Z"})
	msgs := waitMessages(t, fake, 1)
	if msgs[0].topic != "bench/gpio" {
		t.Errorf("topic = %q, want bench/gpio", msgs[0].topic)
	}

	var got events.PinChangedEvent
	if err := json.Unmarshal(msgs[0].payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Pin != 15 || !got.High {
		t.Errorf("payload = %+v", got)
	}

	bus.Publish(events.CalibratedEvent{X: 2000, Y: 2100})
	msgs = waitMessages(t, fake, 2)
	if msgs[1].topic != "bench/calibration" {
		t.Errorf("topic = %q, want bench/calibration", msgs[1].topic)
	}
}

func TestMirrorSurvivesPublishErrors(t *testing.T) {
	bus := events.New()
	fake := &fakeClient{publishErr: context.DeadlineExceeded}
	m := NewMirror(bus, enabledClient(fake, "pinnode"), discardLogger())
	m.Start(context.Background())

	bus.Publish(events.IndicatorChangedEvent{On: true})
	bus.Publish(events.IndicatorChangedEvent{On: false})
	waitMessages(t, fake, 2)
	m.Stop()
}

func TestMirrorStop(t *testing.T) {
	bus := events.New()
	fake := &fakeClient{}
	m := NewMirror(bus, enabledClient(fake, "pinnode"), discardLogger())
	m.Start(context.Background())
	m.Stop()

	bus.Publish(events.DutyChangedEvent{Pin: 4, DutyPct: 50})
	time.Sleep(50 * time.Millisecond)
	if n := len(fake.messages()); n != 0 {
		t.Errorf("published %d messages after Stop", n)
	}
}

func TestMirrorDisabledClient(t *testing.T) {
	bus := events.New()
	m := NewMirror(bus, New(Config{}, discardLogger()), discardLogger())
	m.Start(context.Background())
	bus.Publish(events.RequestHandledEvent{Route: "root", Status: 200})
	m.Stop()
}

func TestMirrorStopForwardsQueuedEvents(t *testing.T) {
	fake := &fakeClient{}
	m := NewMirror(events.New(), enabledClient(fake, "pinnode"), discardLogger())
	for pin := range 3 {
		m.ch <- events.PinChangedEvent{Pin: pin}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.wg.Add(1)
	m.run(ctx)

	if msgs := fake.messages(); len(msgs) != 3 {
		t.Errorf("forwarded %d queued events, want 3", len(msgs))
	}
}
