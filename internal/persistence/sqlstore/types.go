package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayout is fixed width so SQLite text comparison stays chronological.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// dbTime scans a timestamp stored either as TIMESTAMPTZ or as UTC text.
type dbTime struct {
	value time.Time
}

func (t *dbTime) Scan(src any) error {
	parsed, ok, err := scanTime(src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unexpected NULL timestamp")
	}
	t.value = parsed
	return nil
}

func (t dbTime) Time() time.Time {
	return t.value
}

// nullDBTime is the nullable form of dbTime.
type nullDBTime struct {
	value time.Time
	valid bool
}

func (t *nullDBTime) Scan(src any) error {
	parsed, ok, err := scanTime(src)
	if err != nil {
		return err
	}
	t.value, t.valid = parsed, ok
	return nil
}

func (t nullDBTime) Ptr() *time.Time {
	if !t.valid {
		return nil
	}
	v := t.value
	return &v
}

func scanTime(src any) (time.Time, bool, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v.UTC(), true, nil
	case string:
		parsed, err := parseStoredTime(v)
		return parsed, err == nil, err
	case []byte:
		parsed, err := parseStoredTime(string(v))
		return parsed, err == nil, err
	default:
		return time.Time{}, false, fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func parseStoredTime(value string) (time.Time, error) {
	if t, err := time.Parse(timestampLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("encode images: %w", err)
	}
	return string(data), nil
}

func decodeImages(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var images []string
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if images == nil {
		images = []string{}
	}
	return images, nil
}
