package clickstream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the canonical wire format for event timestamps:
// ISO-8601 UTC with microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// FlexString decodes a JSON string or number into a string. Clickstream
// exports are inconsistent about whether identifiers are quoted.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	return fmt.Errorf("cannot decode %s as string or number", string(data))
}

// RawRecord is one row of the clickstream export, before normalization.
// Pointer fields distinguish absent/null values from present ones.
type RawRecord struct {
	UserID    FlexString  `json:"UserID"`
	SessionID FlexString  `json:"SessionID"`
	Timestamp *FlexString `json:"Timestamp"`
	EventType *FlexString `json:"EventType"`
	ProductID *FlexString `json:"ProductID"`
	Amount    *FlexString `json:"Amount"`
	Outcome   *FlexString `json:"Outcome"`
}

// Record is a normalized clickstream record. Nil pointers mean the field
// was missing or unparseable in the raw row.
type Record struct {
	UserID         string
	SessionLocalID string
	Timestamp      *time.Time
	EventType      string
	ProductID      *string
	Amount         *float64
	Outcome        *string
}

// SessionID is the user-scoped session key. Prefixing with the user id
// keeps sessions distinct when two users reuse the same local id.
func (r Record) SessionID() string {
	return r.UserID + "_" + r.SessionLocalID
}

// isNullSentinel reports whether a raw value is one of the placeholder
// strings the upstream export uses for missing data.
func isNullSentinel(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "<null>", "NULL", "null", "NaN", "nan":
		return true
	}
	return false
}

// timestampLayouts are tried in order; naive layouts are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a flexible ISO-like timestamp into UTC. Returns
// nil when the value is missing or unparseable.
func ParseTimestamp(raw string) *time.Time {
	if isNullSentinel(raw) {
		return nil
	}
	value := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// FormatTimestamp renders a timestamp in the canonical wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Normalize cleans one raw row. Malformed fields degrade to nil; a record
// is never rejected outright.
func Normalize(raw RawRecord) Record {
	rec := Record{
		UserID:         strings.TrimSpace(string(raw.UserID)),
		SessionLocalID: strings.TrimSpace(string(raw.SessionID)),
	}

	if raw.Timestamp != nil {
		rec.Timestamp = ParseTimestamp(string(*raw.Timestamp))
	}

	if raw.EventType != nil && !isNullSentinel(string(*raw.EventType)) {
		rec.EventType = strings.TrimSpace(string(*raw.EventType))
	}

	if raw.ProductID != nil && !isNullSentinel(string(*raw.ProductID)) {
		pid := strings.TrimSpace(string(*raw.ProductID))
		rec.ProductID = &pid
	}

	if raw.Amount != nil && !isNullSentinel(string(*raw.Amount)) {
		if amt, err := strconv.ParseFloat(strings.TrimSpace(string(*raw.Amount)), 64); err == nil {
			rec.Amount = &amt
		}
	}

	if raw.Outcome != nil && !isNullSentinel(string(*raw.Outcome)) {
		out := strings.TrimSpace(string(*raw.Outcome))
		rec.Outcome = &out
	}

	return rec
}

// NormalizeAll normalizes a batch, preserving encounter order.
func NormalizeAll(raws []RawRecord) []Record {
	records := make([]Record, len(raws))
	for i, raw := range raws {
		records[i] = Normalize(raw)
	}
	return records
}
