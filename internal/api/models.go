// Package api implements the typed HTTP client for the chemical
// equipment analytics service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// User is the identity record returned by the profile endpoint.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// validate rejects malformed profile payloads at the boundary.
func (u *User) validate() error {
	if u.Username == "" {
		return errors.New("user: missing username")
	}
	return nil
}

// DistributionEntry is one category of the equipment distribution.
type DistributionEntry struct {
	Category string
	Count    int
}

// Session is a read-only summary of one uploaded dataset's aggregate
// analytics. It is produced entirely by the server and replaced
// wholesale when a new upload succeeds or a history entry is selected.
type Session struct {
	ID             string
	FileName       string
	CreatedAt      time.Time
	TotalCount     int
	AvgFlowrate    float64
	AvgPressure    float64
	AvgTemperature float64
	// Distribution holds the category counts in display order:
	// descending by count, ties broken by category name.
	Distribution []DistributionEntry
}

// UnmarshalJSON decodes and validates a session summary. The server
// sends the distribution as a JSON object; entries are materialized in
// a deterministic order since Go map iteration is unordered.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             json.Number    `json:"id"`
		FileName       string         `json:"file_name"`
		CreatedAt      time.Time      `json:"created_at"`
		TotalCount     int            `json:"total_count"`
		AvgFlowrate    float64        `json:"avg_flowrate"`
		AvgPressure    float64        `json:"avg_pressure"`
		AvgTemperature float64        `json:"avg_temperature"`
		Distribution   map[string]int `json:"equipment_distribution"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding session: %w", err)
	}
	if raw.ID.String() == "" {
		return errors.New("session: missing id")
	}
	if raw.FileName == "" {
		return errors.New("session: missing file_name")
	}
	if raw.TotalCount < 0 {
		return fmt.Errorf("session: negative total_count %d", raw.TotalCount)
	}

	entries := make([]DistributionEntry, 0, len(raw.Distribution))
	for category, count := range raw.Distribution {
		if count < 0 {
			return fmt.Errorf("session: negative count %d for category %q", count, category)
		}
		entries = append(entries, DistributionEntry{Category: category, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Category < entries[j].Category
	})

	s.ID = raw.ID.String()
	s.FileName = raw.FileName
	s.CreatedAt = raw.CreatedAt
	s.TotalCount = raw.TotalCount
	s.AvgFlowrate = raw.AvgFlowrate
	s.AvgPressure = raw.AvgPressure
	s.AvgTemperature = raw.AvgTemperature
	s.Distribution = entries
	return nil
}

// MarshalJSON renders the session back into the wire shape. Used by
// fixtures and report export.
func (s Session) MarshalJSON() ([]byte, error) {
	dist := make(map[string]int, len(s.Distribution))
	for _, e := range s.Distribution {
		dist[e.Category] = e.Count
	}
	return json.Marshal(map[string]any{
		"id":                     s.ID,
		"file_name":              s.FileName,
		"created_at":             s.CreatedAt,
		"total_count":            s.TotalCount,
		"avg_flowrate":           s.AvgFlowrate,
		"avg_pressure":           s.AvgPressure,
		"avg_temperature":        s.AvgTemperature,
		"equipment_distribution": dist,
	})
}

// ReportFileName returns the download name for a report of this
// session: Report-<upload date>.<format extension>.
func (s Session) ReportFileName(format ReportFormat) string {
	return fmt.Sprintf("Report-%s.%s", s.CreatedAt.Format("2006-01-02"), format.Ext())
}

// RegisterResponse is returned by the registration endpoint.
type RegisterResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ResetResponse is returned by the password-reset request endpoint.
type ResetResponse struct {
	Message string `json:"message"`
}

// ReportFormat selects the rendering of a generated report.
type ReportFormat string

const (
	ReportPDF  ReportFormat = "pdf"
	ReportCSV  ReportFormat = "csv"
	ReportJSON ReportFormat = "json"
)

// Valid reports whether f is a supported report format.
func (f ReportFormat) Valid() bool {
	switch f {
	case ReportPDF, ReportCSV, ReportJSON:
		return true
	}
	return false
}

// Ext returns the file extension for the format.
func (f ReportFormat) Ext() string {
	return string(f)
}
