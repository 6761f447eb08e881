package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Alert is a single safety-board record as served by the board API.
type Alert struct {
	ID              int64     `json:"id"`
	HazardType      string    `json:"hazardType"`
	Title           string    `json:"title"`
	Nation          string    `json:"nation"`
	PublicationDate AlertDate `json:"publicationDate"`
	Description     string    `json:"description"`
}

// AlertDate accepts both "2006-01-02" and RFC 3339 timestamps.
type AlertDate struct {
	time.Time
}

func (d *AlertDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("publicationDate: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("publicationDate: unrecognised date %q", s)
}

func (d AlertDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}
