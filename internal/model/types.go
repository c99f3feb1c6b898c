package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Date is a calendar date.  It accepts "2006-01-02" or an RFC 3339
// timestamp and always marshals as a bare date.
type Date struct{ time.Time }

// NewDate truncates t to midnight UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses s in either accepted format.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// LooseID is an identifier that clients send as a number, a string, or one
// of the null sentinels ("", "null", "undefined").
type LooseID string

func (l *LooseID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*l = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = LooseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = LooseID(n.String())
	return nil
}

// IsNull reports whether l is empty or a null sentinel.
func (l LooseID) IsNull() bool {
	switch strings.ToLower(strings.TrimSpace(string(l))) {
	case "", "null", "undefined", "0":
		return true
	}
	return false
}

// Uint64 parses l.  Callers check IsNull first.
func (l LooseID) Uint64() (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(string(l)), 10, 64)
}
