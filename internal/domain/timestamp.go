package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp carries a date regardless of origin: a fresh locally captured
// time, or the serialized value read back from the store. Both variants
// resolve to the same canonical time.Time at read time, so formatting never
// depends on where the value came from.
type Timestamp struct {
	t         time.Time
	persisted bool
}

// Now captures the local wall clock as a Timestamp.
func Now() Timestamp {
	return Timestamp{t: time.Now()}
}

// TimestampAt wraps an explicit local time.
func TimestampAt(t time.Time) Timestamp {
	return Timestamp{t: t}
}

// PersistedTimestamp wraps a value a store driver already deserialized.
func PersistedTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t, persisted: true}
}

// Time resolves the timestamp to its canonical form.
func (ts Timestamp) Time() time.Time { return ts.t }

// Persisted reports whether the value was read back from the store rather
// than captured locally.
func (ts Timestamp) Persisted() bool { return ts.persisted }

func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

func (ts Timestamp) Equal(o Timestamp) bool { return ts.t.Equal(o.t) }

// Display renders the canonical wall-clock form shown next to a message.
func (ts Timestamp) Display() string {
	return ts.t.Local().Format("15:04:05")
}

func (ts Timestamp) String() string {
	return ts.t.Format(time.RFC3339Nano)
}

// MarshalJSON always emits RFC 3339, the store's canonical wire form.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.t.Format(time.RFC3339Nano))
}

// serializedClock matches the {seconds, nanos} shape some document stores
// use for server-assigned timestamps, in both common key spellings.
type serializedClock struct {
	Seconds    *int64 `json:"seconds"`
	Nanos      int64  `json:"nanos"`
	AltSeconds *int64 `json:"_seconds"`
	AltNanos   int64  `json:"_nanoseconds"`
}

// UnmarshalJSON accepts every representation a record may have been written
// with: an RFC 3339 string, an epoch-milliseconds number, or a
// {seconds, nanos} object. The parsed value is marked as persisted.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	ts.persisted = true

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		ts.t = t
		return nil
	}

	var millis float64
	if err := json.Unmarshal(data, &millis); err == nil {
		ts.t = time.UnixMilli(int64(millis)).UTC()
		return nil
	}

	var clock serializedClock
	if err := json.Unmarshal(data, &clock); err == nil {
		switch {
		case clock.Seconds != nil:
			ts.t = time.Unix(*clock.Seconds, clock.Nanos).UTC()
			return nil
		case clock.AltSeconds != nil:
			ts.t = time.Unix(*clock.AltSeconds, clock.AltNanos).UTC()
			return nil
		}
	}

	return fmt.Errorf("unsupported timestamp representation: %s", data)
}
