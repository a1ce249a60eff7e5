package extraction

import (
	"fmt"
	"strings"
)

const extractionPrompt = `You are an intelligent extraction model for university admission data.

Analyze a student's email and extract these fields:

- full_name: the student's full name.
- admission_number: the admission number if mentioned (for example "148705" or "BBIT/00432/23").
- course: the course code or name (for example "BBIT").
- year: the academic year as a single digit string ("1" to "4").
- semester: the semester as a single digit string ("1" or "2").
- year_semester: "year.semester" (for example "4.2"), or "" if either is missing.
- group: the group or section (for example "A").
- full_thread_summary: a 2 to 4 sentence summary of the conversation so far.
- details_status: "complete" when full_name, admission_number, course, year, semester and group are all present, "partial" when at least one is present, otherwise "empty".
- missing_fields: a JSON array of the missing fields from ["full_name","admission_number","course","year","semester","group"].
- follow_up_message: when the status is "partial" or "empty", a short polite message asking for the missing fields. Otherwise "".

Rules:
- Return ONLY a valid JSON object with exactly those keys.
- Values are strings, "" when missing.
- "year 4 semester 2", "4.2", "4/2" and "4-2" all mean year "4", semester "2", year_semester "4.2".
- When unsure about a value, leave it "" and list it in missing_fields.
- No commentary, only the JSON.`

func replyPrompt(assistant, organization string, req ReplyRequest) string {
	name := strings.TrimSpace(req.SenderName)
	if name == "" {
		name = req.SenderEmail
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, %s's administrative assistant.\n\n", assistant, organization)
	fmt.Fprintf(&sb, "The sender is:\nName: %s\nEmail: %s\n\n", name, req.SenderEmail)
	fmt.Fprintf(&sb, "They wrote the following email:\nSubject: %s\nBody: %s\n\n", req.Subject, req.Body)
	if req.Summary != "" {
		fmt.Fprintf(&sb, "Conversation so far: %s\n\n", req.Summary)
	}
	sb.WriteString("Write a professional, concise and helpful reply. ")
	fmt.Fprintf(&sb, "Address the sender by their actual name: %s. Do not invent or assume other names. ", name)
	sb.WriteString("Return only the reply body.")
	return sb.String()
}
