package clickstream

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ecom-graph/backend/pkg/logger"
)

// jsonRecord is the on-disk schema for normalized datasets: one object per
// record, nulls representable, plus the derived User_Session composite.
type jsonRecord struct {
	UserID      string   `json:"UserID"`
	SessionID   string   `json:"SessionID"`
	Timestamp   *string  `json:"Timestamp"`
	EventType   *string  `json:"EventType"`
	ProductID   *string  `json:"ProductID"`
	Amount      *float64 `json:"Amount"`
	Outcome     *string  `json:"Outcome"`
	UserSession string   `json:"User_Session"`
}

// ReadCSV parses the raw clickstream CSV into raw records. Columns are
// mapped by header name, so column order does not matter.
func ReadCSV(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file %s has no header row", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"UserID", "SessionID"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv file %s is missing column %s", path, required)
		}
	}

	field := func(row []string, name string) *FlexString {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return nil
		}
		v := FlexString(row[idx])
		return &v
	}

	records := make([]RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		raw := RawRecord{
			Timestamp: field(row, "Timestamp"),
			EventType: field(row, "EventType"),
			ProductID: field(row, "ProductID"),
			Amount:    field(row, "Amount"),
			Outcome:   field(row, "Outcome"),
		}
		if v := field(row, "UserID"); v != nil {
			raw.UserID = *v
		}
		if v := field(row, "SessionID"); v != nil {
			raw.SessionID = *v
		}
		records = append(records, raw)
	}

	logger.Info("CSV dataset read",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)

	return records, nil
}

// ReadJSON loads a dataset previously written by WriteJSON (or any file of
// raw records in the same shape).
func ReadJSON(path string) ([]RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var records []RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}

	logger.Info("JSON dataset read",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)

	return records, nil
}

// WriteJSON writes normalized records back out in the dataset schema,
// timestamps in canonical form and missing fields as nulls.
func WriteJSON(path string, records []Record) error {
	out := make([]jsonRecord, len(records))
	for i, rec := range records {
		jr := jsonRecord{
			UserID:      rec.UserID,
			SessionID:   rec.SessionLocalID,
			ProductID:   rec.ProductID,
			Amount:      rec.Amount,
			Outcome:     rec.Outcome,
			UserSession: rec.SessionID(),
		}
		if rec.Timestamp != nil {
			ts := FormatTimestamp(*rec.Timestamp)
			jr.Timestamp = &ts
		}
		if rec.EventType != "" {
			et := rec.EventType
			jr.EventType = &et
		}
		out[i] = jr
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}

	logger.Info("JSON dataset written",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)

	return nil
}

// SubsetByUsers keeps only the records of the first userCap distinct users
// in encounter order. A cap of zero or less keeps everything.
func SubsetByUsers(records []Record, userCap int) []Record {
	if userCap <= 0 {
		return records
	}

	keep := make(map[string]struct{}, userCap)
	order := 0
	for _, rec := range records {
		if _, ok := keep[rec.UserID]; ok {
			continue
		}
		if order < userCap {
			keep[rec.UserID] = struct{}{}
			order++
		}
	}

	subset := make([]Record, 0, len(records))
	for _, rec := range records {
		if _, ok := keep[rec.UserID]; ok {
			subset = append(subset, rec)
		}
	}

	logger.Info("Dataset filtered by user cap",
		zap.Int("user_cap", userCap),
		zap.Int("users_kept", len(keep)),
		zap.Int("records_kept", len(subset)),
		zap.Int("records_total", len(records)),
	)

	return subset
}
