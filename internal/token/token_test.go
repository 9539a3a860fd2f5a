package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef-test"

func TestManager_IssueAndParse(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m, err := NewManager(testSecret, "courts", func() time.Time { return now })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signed, err := m.Issue("session-1", 42, "manager", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sessionID, userID, err := m.Parse(signed)
	if err != nil {
		t.Fatalf("expected token to parse, got %v", err)
	}
	if sessionID != "session-1" || userID != 42 {
		t.Fatalf("expected session-1/42, got %s/%d", sessionID, userID)
	}
}

func TestManager_Rejections(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	m, err := NewManager(testSecret, "courts", func() time.Time { return clock })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	signed, err := m.Issue("session-1", 42, "customer", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(signed, ".")
		parts[2] = strings.Repeat("A", len(parts[2]))
		if _, _, err := m.Parse(strings.Join(parts, ".")); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid, got %v", err)
		}
	})

	t.Run("other secret", func(t *testing.T) {
		other, _ := NewManager("another-secret-0123456789", "courts", func() time.Time { return now })
		if _, _, err := other.Parse(signed); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, _, err := m.Parse("not-a-token"); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		later, _ := NewManager(testSecret, "courts", func() time.Time { return now.Add(2 * time.Hour) })
		if _, _, err := later.Parse(signed); !errors.Is(err, ErrExpired) {
			t.Fatalf("expected ErrExpired, got %v", err)
		}
	})
}

func TestNewManager_RejectsShortSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewManager("short", "", nil); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}
