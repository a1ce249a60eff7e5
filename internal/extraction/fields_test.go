package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vdavid/replydesk/internal/models"
)

func TestParseFields(t *testing.T) {
	t.Run("complete object", func(t *testing.T) {
		got := ParseFields(`{
			"full_name": "John Mwangi",
			"admission_number": "148705",
			"course": "BBIT",
			"year": "4",
			"semester": "2",
			"year_semester": "4.2",
			"group": "B",
			"full_thread_summary": "Asking about exam dates.",
			"details_status": "complete",
			"missing_fields": [],
			"follow_up_message": ""
		}`)

		assert.Equal(t, "John Mwangi", got.FullName)
		assert.Equal(t, "148705", got.AdmissionNumber)
		assert.Equal(t, "B", got.Group)
		assert.Equal(t, "Asking about exam dates.", got.Summary)
		assert.Equal(t, models.ExtractionComplete, got.Status)
		assert.Empty(t, got.MissingFields)
	})

	t.Run("code fence and prose", func(t *testing.T) {
		got := ParseFields("Here you go:\n```json\n{\"full_name\": \"Jane\", \"details_status\": \"partial\"}\n```\nThanks")
		assert.Equal(t, "Jane", got.FullName)
		assert.Equal(t, models.ExtractionPartial, got.Status)
		assert.Contains(t, got.MissingFields, "admission_number")
		assert.NotContains(t, got.MissingFields, "full_name")
	})

	t.Run("numbers become strings", func(t *testing.T) {
		got := ParseFields(`{"admission_number": 148705, "year": 4}`)
		assert.Equal(t, "148705", got.AdmissionNumber)
		assert.Equal(t, "4", got.Year)
	})

	t.Run("year semester fills missing parts", func(t *testing.T) {
		got := ParseFields(`{"year_semester": "4/2"}`)
		assert.Equal(t, "4", got.Year)
		assert.Equal(t, "2", got.Semester)
	})

	t.Run("claimed complete with missing fields is downgraded", func(t *testing.T) {
		got := ParseFields(`{"full_name": "Jane", "details_status": "complete"}`)
		assert.Equal(t, models.ExtractionPartial, got.Status)
	})

	t.Run("summary fallbacks", func(t *testing.T) {
		assert.Equal(t, "m", ParseFields(`{"message_summary": "m"}`).Summary)
		assert.Equal(t, "s", ParseFields(`{"summary": "s", "message_summary": "m"}`).Summary)
	})

	t.Run("non conforming output is empty", func(t *testing.T) {
		for _, text := range []string{"", "sorry, I cannot help", "{not json}", "[1,2]", `{"full_name": `} {
			got := ParseFields(text)
			assert.Equal(t, models.ExtractionEmpty, got.Status, text)
			assert.Empty(t, got.FullName, text)
		}
	})

	t.Run("unknown status derived from fields", func(t *testing.T) {
		got := ParseFields(`{"full_name": "Jane", "details_status": "mostly"}`)
		assert.Equal(t, models.ExtractionPartial, got.Status)
	})
}
