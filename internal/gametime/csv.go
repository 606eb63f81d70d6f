package gametime

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyDataset is returned by ReadCSV when the input has no content at all.
var ErrEmptyDataset = errors.New("empty dataset")

var acqTimeLayouts = []string{
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ReadCSV decodes a dataset and validates it against DatasetSchema.
func ReadCSV(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		return Table{}, ErrEmptyDataset
	}
	reader := csv.NewReader(br)
	reader.ReuseRecord = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, ErrEmptyDataset
		}
		return Table{}, fmt.Errorf("read dataset header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) == 1 && strings.TrimSpace(header[0]) == "" {
		return Table{}, ErrEmptyDataset
	}
	pos, err := DatasetSchema.Bind(header)
	if err != nil {
		return Table{}, err
	}

	var rows []Observation
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read dataset row %d: %w", row, err)
		}
		obs, err := decodeRow(record, pos, row)
		if err != nil {
			return Table{}, err
		}
		rows = append(rows, obs)
	}
	t := Table{rows: rows}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

func decodeRow(record []string, pos map[string]int, row int) (Observation, error) {
	var obs Observation
	var err error
	obs.SteamID = strings.TrimSpace(record[pos[ColSteamID]])
	obs.GameID = strings.TrimSpace(record[pos[ColGameID]])
	if obs.GameTime, err = parseFloat(record[pos[ColGameTime]]); err != nil {
		return obs, &ValidationError{Cause: CauseWrongType, Column: ColGameTime, Row: row, Detail: err.Error()}
	}
	if obs.GameTimeDiff, err = parseFloat(record[pos[ColGameTimeDiff]]); err != nil {
		return obs, &ValidationError{Cause: CauseWrongType, Column: ColGameTimeDiff, Row: row, Detail: err.Error()}
	}
	if obs.AcqTime, err = parseAcqTime(record[pos[ColAcqTime]]); err != nil {
		return obs, &ValidationError{Cause: CauseWrongType, Column: ColAcqTime, Row: row, Detail: err.Error()}
	}
	return obs, nil
}

func parseFloat(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "nan", "na", "null":
		return Missing(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("expected float, got %q", raw)
	}
	return v, nil
}

func parseAcqTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range acqTimeLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("expected timestamp, got %q", raw)
}

// WriteCSV encodes t with an unnamed 0-based index column followed by the
// schema columns.
func WriteCSV(w io.Writer, t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(DatasetSchema.Header()); err != nil {
		return fmt.Errorf("write dataset header: %w", err)
	}
	record := make([]string, len(DatasetSchema.Columns))
	for i, r := range t.rows {
		for c, col := range DatasetSchema.Columns {
			switch col.Name {
			case ColIndex:
				record[c] = strconv.Itoa(i)
			case ColSteamID:
				record[c] = r.SteamID
			case ColGameID:
				record[c] = r.GameID
			case ColAcqTime:
				record[c] = FormatTimestamp(r.AcqTime)
			case ColGameTime:
				record[c] = formatFloat(r.GameTime)
			case ColGameTimeDiff:
				record[c] = formatFloat(r.GameTimeDiff)
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write dataset row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// EncodeCSV is WriteCSV into a byte slice.
func EncodeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatTimestamp renders an acquisition time the way the dataset stores it.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format("2006-01-02 15:04:05-07:00")
}

func formatFloat(v float64) string {
	if IsMissing(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
