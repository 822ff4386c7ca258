// package models defines the data model for the course demand client
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status is the lifecycle stage of a course record.
type Status string

const (
	StatusNeedsRequests Status = "needs-requests"
	StatusInPipeline    Status = "in-pipeline"
	StatusActive        Status = "active"
)

// ParseStatus maps the catalog feed's wire value to a [Status]. Unknown values need requests.
func ParseStatus(wire string) Status {
	switch strings.ToLower(strings.TrimSpace(wire)) {
	case "active":
		return StatusActive
	case "progress", "in-pipeline":
		return StatusInPipeline
	default:
		return StatusNeedsRequests
	}
}

// Wire returns the catalog feed spelling of s.
func (s Status) Wire() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInPipeline:
		return "progress"
	default:
		return "inactive"
	}
}

// Label returns the human readable status.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusInPipeline:
		return "In Pipeline"
	default:
		return "Needs Requests"
	}
}

// CourseRecord is one course-demand entry. The remote catalog is the source of truth.
type CourseRecord struct {
	ID           string `json:"id"`
	Institution  string `json:"college"`
	Term         int    `json:"semester"`
	Title        string `json:"course"`
	Department   string `json:"department"`
	RequestCount int    `json:"requestCount"`
	Status       Status `json:"status"`
}

// wireRecord mirrors the feed row; pointer fields distinguish missing keys from zero values.
type wireRecord struct {
	ID           *flexString `json:"id"`
	Institution  *string     `json:"college"`
	Term         flexInt     `json:"semester"`
	Title        *string     `json:"course"`
	Department   string      `json:"department"`
	RequestCount flexInt     `json:"requestCount"`
	Status       string      `json:"status"`
}

// UnmarshalJSON decodes a catalog row, rejecting rows that lack id, college or course.
func (r *CourseRecord) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch {
	case w.ID == nil || *w.ID == "":
		return fmt.Errorf("record missing id")
	case w.Institution == nil:
		return fmt.Errorf("record %s missing college", *w.ID)
	case w.Title == nil:
		return fmt.Errorf("record %s missing course", *w.ID)
	}

	count := int(w.RequestCount)
	if count < 0 {
		count = 0
	}

	*r = CourseRecord{
		ID:           string(*w.ID),
		Institution:  *w.Institution,
		Term:         int(w.Term),
		Title:        *w.Title,
		Department:   w.Department,
		RequestCount: count,
		Status:       ParseStatus(w.Status),
	}
	return nil
}

// MarshalJSON encodes the record with the feed's wire keys and status spelling.
func (r CourseRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           string `json:"id"`
		Institution  string `json:"college"`
		Term         int    `json:"semester"`
		Title        string `json:"course"`
		Department   string `json:"department"`
		RequestCount int    `json:"requestCount"`
		Status       string `json:"status"`
	}{r.ID, r.Institution, r.Term, r.Title, r.Department, r.RequestCount, r.Status.Wire()})
}

// CompositeKey identifies a record that has no server-assigned id yet.
func CompositeKey(institution, department, title string, term int) string {
	return fmt.Sprintf("%s|%s|%s|%d", institution, department, title, term)
}

// CompositeKey returns the record's institution|department|title|term key.
func (r CourseRecord) CompositeKey() string {
	return CompositeKey(r.Institution, r.Department, r.Title, r.Term)
}

// GroupView is the projection of one institution's records.
type GroupView struct {
	Institution   string         `json:"institution"`
	Records       []CourseRecord `json:"records"`
	TotalRequests int            `json:"totalRequests"`
}

// CourseForm is a proposed new record. Term is kept as typed so validation can report bad input.
type CourseForm struct {
	Institution string
	Term        string
	Title       string
	Department  string
}

// TermNumber returns the parsed term, or 0 when it does not parse.
func (f CourseForm) TermNumber() int {
	n, _ := strconv.Atoi(strings.TrimSpace(f.Term))
	return n
}

// CompositeKey returns the institution|department|title|term key the new record will be tracked under.
func (f CourseForm) CompositeKey() string {
	return CompositeKey(f.Institution, f.Department, f.Title, f.TermNumber())
}

// flexInt accepts JSON numbers and numeric strings; spreadsheet-backed feeds emit either.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*n = flexInt(f)
	return nil
}

// flexString accepts JSON strings and numbers (sheet ids are often numeric).
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("invalid id %s", string(data))
	}
	*s = flexString(num.String())
	return nil
}
