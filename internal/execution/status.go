package execution

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the execution state of one item.
type Status int

const (
	StatusNotStarted Status = iota
	StatusQueued
	StatusRunning
	StatusWaiting
	StatusSuccess
	StatusFailed
	StatusAborted
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusNotStarted: "NotStarted",
	StatusQueued:     "Queued",
	StatusRunning:    "Running",
	StatusWaiting:    "Waiting",
	StatusSuccess:    "Success",
	StatusFailed:     "Failed",
	StatusAborted:    "Aborted",
	StatusSkipped:    "Skipped",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ParseStatus maps a status name, case-insensitively, to a Status.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return StatusNotStarted, fmt.Errorf("unknown execution status %q", name)
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if name == "" {
		*s = StatusNotStarted
		return nil
	}
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsRunning reports whether the item is currently active, including waiting
// on an approval.
func (s Status) IsRunning() bool {
	return s == StatusRunning || s == StatusWaiting
}

// IsDone reports whether the item reached a final state.
func (s Status) IsDone() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusAborted, StatusSkipped:
		return true
	}
	return false
}

// Edge colours.
const (
	ColorGrey  = "#b0b1c4"
	ColorBlue  = "#0278d5"
	ColorGreen = "#1b841d"
	ColorRed   = "#da291d"
)

// EdgeColor is the colour of an edge leaving an item with this status.
func (s Status) EdgeColor() string {
	switch s {
	case StatusRunning, StatusWaiting:
		return ColorBlue
	case StatusSuccess, StatusSkipped:
		return ColorGreen
	case StatusFailed, StatusAborted:
		return ColorRed
	default:
		return ColorGrey
	}
}
