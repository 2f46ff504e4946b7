package clickstream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func flex(s string) *FlexString {
	f := FlexString(s)
	return &f
}

func TestNormalize_NullSentinels(t *testing.T) {
	sentinels := []string{"", " ", "  ", "<null>", "NULL", "null", "NaN", "nan"}

	for _, s := range sentinels {
		t.Run("sentinel "+s, func(t *testing.T) {
			rec := Normalize(RawRecord{
				UserID:    "7",
				SessionID: "s1",
				Timestamp: flex(s),
				EventType: flex(s),
				ProductID: flex(s),
				Amount:    flex(s),
				Outcome:   flex(s),
			})

			require.Nil(t, rec.Timestamp)
			require.Empty(t, rec.EventType)
			require.Nil(t, rec.ProductID)
			require.Nil(t, rec.Amount)
			require.Nil(t, rec.Outcome)
		})
	}
}

func TestNormalize_MissingFieldsDegradeToNil(t *testing.T) {
	rec := Normalize(RawRecord{UserID: "42", SessionID: "9"})

	require.Equal(t, "42", rec.UserID)
	require.Equal(t, "9", rec.SessionLocalID)
	require.Equal(t, "42_9", rec.SessionID())
	require.Nil(t, rec.Timestamp)
	require.Nil(t, rec.ProductID)
	require.Nil(t, rec.Amount)
	require.Nil(t, rec.Outcome)
}

func TestNormalize_Fields(t *testing.T) {
	rec := Normalize(RawRecord{
		UserID:    "1",
		SessionID: "s1",
		Timestamp: flex("2024-03-01T10:15:30.123456Z"),
		EventType: flex(" purchase "),
		ProductID: flex("p42"),
		Amount:    flex("9.99"),
		Outcome:   flex("completed"),
	})

	require.NotNil(t, rec.Timestamp)
	require.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.UTC), rec.Timestamp.UTC())
	require.Equal(t, "purchase", rec.EventType)
	require.NotNil(t, rec.ProductID)
	require.Equal(t, "p42", *rec.ProductID)
	require.NotNil(t, rec.Amount)
	require.InDelta(t, 9.99, *rec.Amount, 1e-9)
	require.NotNil(t, rec.Outcome)
	require.Equal(t, "completed", *rec.Outcome)
}

func TestNormalize_BadFieldsNeverAbortRecord(t *testing.T) {
	rec := Normalize(RawRecord{
		UserID:    "1",
		SessionID: "s1",
		Timestamp: flex("not a timestamp"),
		EventType: flex("click"),
		Amount:    flex("twelve"),
	})

	require.Nil(t, rec.Timestamp)
	require.Nil(t, rec.Amount)
	require.Equal(t, "click", rec.EventType)
}

func TestParseTimestamp_Layouts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339 micros", "2024-03-01T10:15:30.000001Z", time.Date(2024, 3, 1, 10, 15, 30, 1000, time.UTC)},
		{"rfc3339 seconds", "2024-03-01T10:15:30Z", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"offset converted to utc", "2024-03-01T12:15:30+02:00", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"naive t separator", "2024-03-01T10:15:30", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"naive space separator", "2024-03-01 10:15:30", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"naive space micros", "2024-03-01 10:15:30.5", time.Date(2024, 3, 1, 10, 15, 30, 500000000, time.UTC)},
		{"date only", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTimestamp(tc.in)
			require.NotNil(t, got)
			require.True(t, tc.want.Equal(*got), "got %v, want %v", got, tc.want)
		})
	}

	require.Nil(t, ParseTimestamp("03/01/2024 10:15"))
	require.Nil(t, ParseTimestamp(""))
}

func TestFormatTimestamp_MicrosecondPrecision(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 15, 30, 123456789, time.UTC)
	require.Equal(t, "2024-03-01T10:15:30.123456Z", FormatTimestamp(ts))

	zero := time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)
	require.Equal(t, "2024-03-01T10:15:30.000000Z", FormatTimestamp(zero))
}

func TestFlexString_DecodesStringsAndNumbers(t *testing.T) {
	var raw RawRecord
	payload := `{"UserID": 1001, "SessionID": "7", "ProductID": 55, "Amount": 12.5}`
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	require.Equal(t, FlexString("1001"), raw.UserID)
	require.Equal(t, FlexString("7"), raw.SessionID)
	require.NotNil(t, raw.ProductID)
	require.Equal(t, FlexString("55"), *raw.ProductID)
	require.NotNil(t, raw.Amount)
	require.Equal(t, FlexString("12.5"), *raw.Amount)
}

func TestFlexString_NullYieldsNilPointer(t *testing.T) {
	var raw RawRecord
	payload := `{"UserID": "1", "SessionID": "s", "ProductID": null, "Timestamp": null}`
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	require.Nil(t, raw.ProductID)
	require.Nil(t, raw.Timestamp)
}
