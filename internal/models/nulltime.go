package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the sortable text form timestamps are stored in.
const TimeLayout = "2006-01-02 15:04:05.000"

// DateLayout is the date-only form shown to the user.
const DateLayout = "2006-01-02"

var parseLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	DateLayout,
}

// FormatTime renders t in the stored text form (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts the stored form, SQLite's CURRENT_TIMESTAMP form,
// RFC 3339 and bare dates.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized time %q", ErrValidation, raw)
}

// NullTime is an optional timestamp stored as TEXT.
type NullTime struct {
	Time  time.Time
	Valid bool
}

// NewNullTime wraps a set timestamp.
func NewNullTime(t time.Time) NullTime {
	return NullTime{Time: t.UTC(), Valid: true}
}

// DateOnly truncates to the date portion, or returns "" when unset.
func (n NullTime) DateOnly() string {
	if !n.Valid {
		return ""
	}
	return n.Time.Format(DateLayout)
}

// Scan implements sql.Scanner.
func (n *NullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = NullTime{}
		return nil
	case time.Time:
		*n = NewNullTime(v)
		return nil
	case []byte:
		return n.scanString(string(v))
	case string:
		return n.scanString(v)
	}
	return fmt.Errorf("cannot scan %T into NullTime", src)
}

func (n *NullTime) scanString(s string) error {
	if strings.TrimSpace(s) == "" {
		*n = NullTime{}
		return nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	*n = NewNullTime(t)
	return nil
}

// Value implements driver.Valuer.
func (n NullTime) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return FormatTime(n.Time), nil
}

// MarshalJSON renders null or an RFC 3339 string.
func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts null, "" and any form ParseTime understands.
func (n *NullTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = NullTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return n.scanString(s)
}
