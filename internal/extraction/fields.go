package extraction

import (
	"encoding/json"
	"strings"

	"github.com/vdavid/replydesk/internal/models"
)

// MainFields are the student details that decide the extraction status.
var MainFields = []string{"full_name", "admission_number", "course", "year", "semester", "group"}

type rawFields struct {
	FullName          any `json:"full_name"`
	AdmissionNumber   any `json:"admission_number"`
	Course            any `json:"course"`
	Year              any `json:"year"`
	Semester          any `json:"semester"`
	YearSemester      any `json:"year_semester"`
	Group             any `json:"group"`
	FullThreadSummary any `json:"full_thread_summary"`
	MessageSummary    any `json:"message_summary"`
	Summary           any `json:"summary"`
	DetailsStatus     any `json:"details_status"`
	Status            any `json:"status"`
	MissingFields     any `json:"missing_fields"`
	FollowUpMessage   any `json:"follow_up_message"`
}

// ParseFields reads the model output. It tolerates code fences and prose around
// the JSON object. Anything it cannot read produces empty fields.
func ParseFields(text string) models.ExtractedFields {
	empty := models.ExtractedFields{Status: models.ExtractionEmpty}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return empty
	}

	var raw rawFields
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return empty
	}

	fields := models.ExtractedFields{
		FullName:        str(raw.FullName),
		AdmissionNumber: str(raw.AdmissionNumber),
		Course:          str(raw.Course),
		Year:            str(raw.Year),
		Semester:        str(raw.Semester),
		Group:           str(raw.Group),
		FollowUpMessage: str(raw.FollowUpMessage),
		Summary:         firstNonEmpty(str(raw.FullThreadSummary), str(raw.Summary), str(raw.MessageSummary)),
	}

	if fields.Year == "" || fields.Semester == "" {
		year, semester := splitYearSemester(str(raw.YearSemester))
		if fields.Year == "" {
			fields.Year = year
		}
		if fields.Semester == "" {
			fields.Semester = semester
		}
	}

	fields.MissingFields = fields.Missing()
	fields.Status = statusFor(fields)

	claimed := models.ExtractionStatus(strings.ToLower(firstNonEmpty(str(raw.DetailsStatus), str(raw.Status))))
	// A model that claims less than what it returned is trusted; one that claims more is not.
	if claimed.Valid() && claimed.Advance(fields.Status) == fields.Status {
		fields.Status = claimed
	}

	return fields
}

func statusFor(f models.ExtractedFields) models.ExtractionStatus {
	switch len(f.MissingFields) {
	case 0:
		return models.ExtractionComplete
	case len(MainFields):
		return models.ExtractionEmpty
	default:
		return models.ExtractionPartial
	}
}

func splitYearSemester(s string) (string, string) {
	s = strings.TrimSpace(s)
	for _, sep := range []string{".", "/", "-"} {
		if year, semester, ok := strings.Cut(s, sep); ok {
			return strings.TrimSpace(year), strings.TrimSpace(semester)
		}
	}
	return "", ""
}

// str flattens a JSON scalar to a trimmed string. Numbers are common for
// admission numbers and years.
func str(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		b, _ := json.Marshal(val)
		return string(b)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
