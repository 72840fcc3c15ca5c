package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jusunglee/departures-go/internal/models"
	"github.com/pkg/errors"
)

// Feed column names
const (
	ColTimeStamp     = "TimeStamp"
	ColOrigin        = "Origin"
	ColTrip          = "Trip"
	ColDestination   = "Destination"
	ColScheduledTime = "ScheduledTime"
	ColLateness      = "Lateness"
	ColTrack         = "Track"
	ColStatus        = "Status"
)

// Track may be missing entirely; every other column must be present
var requiredColumns = []string{
	ColTimeStamp, ColOrigin, ColTrip, ColDestination,
	ColScheduledTime, ColLateness, ColStatus,
}

var errMissingColumn = errors.New("missing required column")

// ParseError reports malformed CSV or a value that cannot be coerced to its
// column type. Line is the 1-based line in the feed, or 0 when unknown.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("parse departures: line %d, column %s: %v", e.Line, e.Column, e.Err)
	}
	return "parse departures: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseDepartures parses feed CSV and maps each row to a Departure in timeZone.
// Output order matches row order.
func ParseDepartures(input, timeZone string) ([]models.Departure, error) {
	loc, err := models.LoadLocation(timeZone)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return parseDepartures(input, loc)
}

func parseDepartures(input string, loc *time.Location) ([]models.Departure, error) {
	rows, err := ParseRows(input)
	if err != nil {
		return nil, err
	}

	departures := make([]models.Departure, len(rows))
	for i, row := range rows {
		departures[i] = models.NewDeparture(row, loc)
	}
	return departures, nil
}

// ParseRows parses feed CSV into typed rows. The first record is the header
// and columns are located by name.
func ParseRows(input string) ([]models.Row, error) {
	r := csv.NewReader(strings.NewReader(input))

	header, err := r.Read()
	if err == io.EOF {
		return []models.Row{}, nil
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	idx, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	rows := []models.Row{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		line, _ := r.FieldPos(0)
		row, err := decodeRow(record, idx, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func indexColumns(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		idx[h] = i
	}

	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &ParseError{Line: 1, Column: col, Err: errMissingColumn}
		}
	}
	return idx, nil
}

// rowDecoder collects the first coercion failure so decodeRow reads linearly
type rowDecoder struct {
	record []string
	idx    map[string]int
	line   int
	err    *ParseError
}

func (d *rowDecoder) field(col string) string {
	i, ok := d.idx[col]
	if !ok {
		return ""
	}
	return d.record[i]
}

func (d *rowDecoder) int64Field(col string, emptyOK bool) int64 {
	if d.err != nil {
		return 0
	}
	raw := strings.TrimSpace(d.field(col))
	if raw == "" && emptyOK {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		d.err = &ParseError{Line: d.line, Column: col, Err: err}
	}
	return v
}

func (d *rowDecoder) intField(col string, emptyOK bool) int {
	if d.err != nil {
		return 0
	}
	raw := strings.TrimSpace(d.field(col))
	if raw == "" && emptyOK {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		d.err = &ParseError{Line: d.line, Column: col, Err: err}
	}
	return v
}

func decodeRow(record []string, idx map[string]int, line int) (models.Row, error) {
	d := &rowDecoder{record: record, idx: idx, line: line}

	row := models.Row{
		TimeStamp:     d.int64Field(ColTimeStamp, false),
		Origin:        d.field(ColOrigin),
		Trip:          d.intField(ColTrip, false),
		Destination:   d.field(ColDestination),
		ScheduledTime: d.int64Field(ColScheduledTime, false),
		Lateness:      d.intField(ColLateness, true),
		Track:         d.field(ColTrack),
		Status:        d.field(ColStatus),
	}
	if d.err != nil {
		return models.Row{}, d.err
	}
	return row, nil
}
