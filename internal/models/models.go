package models

import (
	"strconv"
	"time"
	_ "time/tzdata" // zone database for hosts without /usr/share/zoneinfo

	"github.com/pkg/errors"
)

// ClockLayout renders a short 12-hour clock time, e.g. "8:15 PM"
const ClockLayout = "3:04 PM"

// NoTrack is shown when the feed has not assigned a track yet
const NoTrack = "-"

var errNoTimeZone = errors.New("time zone must be an IANA zone name")

// Row is one typed record of the departures CSV feed
type Row struct {
	TimeStamp     int64  // epoch seconds
	Origin        string
	Trip          int
	Destination   string
	ScheduledTime int64 // epoch seconds
	Lateness      int   // seconds
	Track         string
	Status        string
}

// Departure is a display-ready departure board entry
type Departure struct {
	CurrentTime   string `json:"currentTime"`
	ScheduledTime string `json:"scheduledTime"`
	Origin        string `json:"origin"`
	Trip          int    `json:"trip"`
	Destination   string `json:"destination"`
	Lateness      int    `json:"lateness"`
	Track         string `json:"track"`
	Status        string `json:"status"`
	StatusText    string `json:"statusText"`
}

// NewDeparture converts a feed row into a Departure localized to loc
func NewDeparture(row Row, loc *time.Location) Departure {
	track := row.Track
	if track == "" {
		track = NoTrack
	}

	return Departure{
		CurrentTime:   FormatClock(row.TimeStamp, loc),
		ScheduledTime: FormatClock(row.ScheduledTime, loc),
		Origin:        row.Origin,
		Trip:          row.Trip,
		Destination:   row.Destination,
		Lateness:      row.Lateness,
		Track:         track,
		Status:        row.Status,
		StatusText:    StatusTextFrom(row.Status, row.Lateness),
	}
}

// FormatClock renders epoch seconds as a short clock time in loc
func FormatClock(epochSeconds int64, loc *time.Location) string {
	return time.Unix(epochSeconds, 0).In(loc).Format(ClockLayout)
}

// ParseTimestamp renders epoch seconds as a short clock time in the named IANA zone.
//
//	ParseTimestamp(1520900100, "America/New_York") -> "8:15 PM"
func ParseTimestamp(epochSeconds int64, timeZone string) (string, error) {
	loc, err := LoadLocation(timeZone)
	if err != nil {
		return "", err
	}
	return FormatClock(epochSeconds, loc), nil
}

// LoadLocation resolves an IANA zone name. Empty and "Local" are rejected so
// output never depends on the host's zone.
func LoadLocation(timeZone string) (*time.Location, error) {
	if timeZone == "" || timeZone == "Local" {
		return nil, errNoTimeZone
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown time zone %q", timeZone)
	}
	return loc, nil
}

// StatusTextFrom combines status with lateness in minutes for display.
//
//	StatusTextFrom("On Time", 0)   -> "On Time"
//	StatusTextFrom("Delayed", 300) -> "Delayed 5 min"
//	StatusTextFrom("Delayed", 330) -> "Delayed 5.5 min"
func StatusTextFrom(status string, latenessSeconds int) string {
	if latenessSeconds <= 0 {
		return status
	}

	minutes := float64(latenessSeconds) / 60
	return status + " " + strconv.FormatFloat(minutes, 'f', -1, 64) + " min"
}
