package models

import "time"

// ExtractionStatus describes how much of the student details are known for a thread.
type ExtractionStatus string

const (
	ExtractionEmpty    ExtractionStatus = "empty"
	ExtractionPartial  ExtractionStatus = "partial"
	ExtractionComplete ExtractionStatus = "complete"
)

func (s ExtractionStatus) rank() int {
	switch s {
	case ExtractionComplete:
		return 2
	case ExtractionPartial:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known statuses.
func (s ExtractionStatus) Valid() bool {
	return s == ExtractionEmpty || s == ExtractionPartial || s == ExtractionComplete
}

// Advance returns the later of s and next. Status only moves forward.
func (s ExtractionStatus) Advance(next ExtractionStatus) ExtractionStatus {
	if !s.Valid() {
		s = ExtractionEmpty
	}
	if next.rank() > s.rank() {
		return next
	}
	return s
}

// ExtractedFields is the structured result of the extraction collaborator.
type ExtractedFields struct {
	FullName        string           `json:"full_name"`
	AdmissionNumber string           `json:"admission_number"`
	Course          string           `json:"course"`
	Year            string           `json:"year"`
	Semester        string           `json:"semester"`
	Group           string           `json:"group"`
	Status          ExtractionStatus `json:"status"`
	MissingFields   []string         `json:"missing_fields"`
	FollowUpMessage string           `json:"follow_up_message"`
	Summary         string           `json:"summary"`
}

// ThreadState is the persisted preview of a conversation thread.
type ThreadState struct {
	ThreadID         string           `json:"thread_id"`
	Subject          string           `json:"subject"`
	LatestBody       string           `json:"latest_body"`
	LastSeenAt       *time.Time       `json:"last_seen_at"`
	Fields           *ExtractedFields `json:"extracted_fields,omitempty"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
}

// ThreadsResponse is the API response for the thread list.
type ThreadsResponse struct {
	Threads    []*ThreadState `json:"threads"`
	Pagination PaginationInfo `json:"pagination"`
}

// PaginationInfo describes one page of a list response.
type PaginationInfo struct {
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
}

// Missing lists the main student fields that are still empty, using their JSON names.
func (f ExtractedFields) Missing() []string {
	missing := []string{}
	for _, field := range []struct {
		name, value string
	}{
		{"full_name", f.FullName},
		{"admission_number", f.AdmissionNumber},
		{"course", f.Course},
		{"year", f.Year},
		{"semester", f.Semester},
		{"group", f.Group},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}
