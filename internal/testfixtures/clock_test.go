package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Run("defaults to the reference time", func(t *testing.T) {
		if got := NewClock(time.Time{}).Now(); !got.Equal(ReferenceTime()) {
			t.Fatalf("expected ReferenceTime, got %v", got)
		}
	})

	t.Run("advance and set are seen through NowFunc", func(t *testing.T) {
		start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
		clock := NewClock(start)
		now := clock.NowFunc()

		if got := clock.Advance(90 * time.Minute); !got.Equal(start.Add(90 * time.Minute)) {
			t.Fatalf("advance returned %v", got)
		}
		if !now().Equal(start.Add(90 * time.Minute)) {
			t.Fatalf("NowFunc did not follow Advance: %v", now())
		}

		clock.Set(start.Add(2 * time.Hour))
		if !now().Equal(start.Add(2 * time.Hour)) {
			t.Fatalf("NowFunc did not follow Set: %v", now())
		}
	})

	t.Run("slot starts on an hour boundary", func(t *testing.T) {
		clock := NewClock(time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC))
		start, end := clock.Slot(2, 90*time.Minute)

		want := time.Date(2024, time.March, 14, 11, 0, 0, 0, time.UTC)
		if !start.Equal(want) || !end.Equal(want.Add(90*time.Minute)) {
			t.Fatalf("unexpected slot %v - %v", start, end)
		}
	})
}

func TestSessionIDs(t *testing.T) {
	ids := NewSessionIDs("")
	next := ids.NextFunc()

	if first, second := next(), ids.Next(); first != "session-1" || second != "session-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if issued := ids.Issued(); len(issued) != 2 || issued[1] != "session-2" {
		t.Fatalf("unexpected issued list: %v", issued)
	}
	if got := (*SessionIDs)(nil).NextFunc()(); got != "" {
		t.Fatalf("expected empty id from nil generator, got %q", got)
	}
}
