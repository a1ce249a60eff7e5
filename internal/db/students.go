package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/replydesk/internal/models"
)

// ErrStudentNotFound is returned when no student exists for an email address.
var ErrStudentNotFound = errors.New("student not found")

// UpsertStudent creates or updates the student for student.Email.
// Empty fields never overwrite stored values.
func UpsertStudent(ctx context.Context, pool *pgxpool.Pool, student *models.Student) error {
	email := strings.ToLower(strings.TrimSpace(student.Email))
	if email == "" {
		return fmt.Errorf("failed to upsert student: empty email")
	}

	err := pool.QueryRow(ctx, `
		INSERT INTO students (email, full_name, admission_number, course, year, semester, student_group, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO UPDATE SET
			full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), students.full_name),
			admission_number = COALESCE(NULLIF(EXCLUDED.admission_number, ''), students.admission_number),
			course = COALESCE(NULLIF(EXCLUDED.course, ''), students.course),
			year = COALESCE(NULLIF(EXCLUDED.year, ''), students.year),
			semester = COALESCE(NULLIF(EXCLUDED.semester, ''), students.semester),
			student_group = COALESCE(NULLIF(EXCLUDED.student_group, ''), students.student_group),
			summary = COALESCE(NULLIF(EXCLUDED.summary, ''), students.summary),
			updated_at = now()
		RETURNING id, updated_at
	`, email, student.FullName, student.AdmissionNumber, student.Course,
		student.Year, student.Semester, student.Group, student.Summary,
	).Scan(&student.ID, &student.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", err)
	}

	student.Email = email
	return nil
}

// GetStudentByEmail returns the student with the given email address.
func GetStudentByEmail(ctx context.Context, pool *pgxpool.Pool, email string) (*models.Student, error) {
	var s models.Student

	err := pool.QueryRow(ctx, `
		SELECT id, email, full_name, admission_number, course, year, semester, student_group, summary, updated_at
		FROM students
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(
		&s.ID, &s.Email, &s.FullName, &s.AdmissionNumber, &s.Course,
		&s.Year, &s.Semester, &s.Group, &s.Summary, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return &s, nil
}

// StudentFromFields builds a Student row from extracted fields.
func StudentFromFields(email string, fields models.ExtractedFields) *models.Student {
	return &models.Student{
		Email:           email,
		FullName:        fields.FullName,
		AdmissionNumber: fields.AdmissionNumber,
		Course:          fields.Course,
		Year:            fields.Year,
		Semester:        fields.Semester,
		Group:           fields.Group,
		Summary:         fields.Summary,
	}
}
