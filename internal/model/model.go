package model

import (
	"fmt"
	"time"
)

// Role is the access level stored on a user account.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleTeacher    Role = "TEACHER"
	RoleStudent    Role = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// IsAdmin reports whether r carries administrative rights.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Status is an attendance mark. A missing record means absent.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `json:"role"`
	StudentID    string    `json:"studentId,omitempty"`
	Department   string    `json:"department,omitempty"`
	Semester     string    `json:"semester,omitempty"`
	// AttendanceCount is populated on list reads only.
	AttendanceCount int       `json:"attendanceCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// UserRef is the trimmed user shape embedded in subject and attendance reads.
type UserRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	StudentID string `json:"studentId,omitempty"`
}

// Subject is a course. Teachers and Students are populated on detail reads.
type Subject struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	Department        string    `json:"department"`
	Description       string    `json:"description,omitempty"`
	Active            bool      `json:"isActive"`
	AttendanceEnabled bool      `json:"attendanceEnabled"`
	CreatedAt         time.Time `json:"createdAt"`

	Teachers     []UserRef `json:"teachers,omitempty"`
	Students     []UserRef `json:"students,omitempty"`
	TeacherCount int       `json:"teacherCount"`
	StudentCount int       `json:"studentCount"`
}

// SubjectRef is the trimmed subject shape embedded in attendance reads.
type SubjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// TeacherAssignment links a teacher to a subject they manage attendance for.
// At most one row exists per (teacher, subject) pair.
type TeacherAssignment struct {
	TeacherID string    `json:"teacherId"`
	SubjectID string    `json:"subjectId"`
	CreatedAt time.Time `json:"createdAt"`

	Teacher *UserRef    `json:"teacher,omitempty"`
	Subject *SubjectRef `json:"subject,omitempty"`
}

// StudentEnrollment links a student to a subject. At most one row exists
// per (student, subject) pair.
type StudentEnrollment struct {
	StudentID string    `json:"studentId"`
	SubjectID string    `json:"subjectId"`
	CreatedAt time.Time `json:"createdAt"`

	Student *UserRef    `json:"student,omitempty"`
	Subject *SubjectRef `json:"subject,omitempty"`
}

// AttendanceRecord is one ledger entry per (subject, student, date).
// Date, subject and student are immutable after creation; only the status
// may change, and only via teacher edit.
type AttendanceRecord struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	StudentID string    `json:"studentId"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	TakenByID string    `json:"takenById"`
	CreatedAt time.Time `json:"createdAt"`

	Student *UserRef    `json:"student,omitempty"`
	Subject *SubjectRef `json:"subject,omitempty"`
}

// AttendanceStats is the aggregate shape for the stats endpoint.
type AttendanceStats struct {
	TotalStudents int `json:"totalStudents"`
	PresentCount  int `json:"presentCount"`
	AbsentCount   int `json:"absentCount"`
	LateCount     int `json:"lateCount"`
}

// StudentSummary is the per-student rollup for the summary endpoint.
type StudentSummary struct {
	User
	TotalDays            int     `json:"totalDays"`
	PresentDays          int     `json:"presentDays"`
	AttendancePercentage float64 `json:"attendancePercentage"`
}

// DateLayout is the wire format for attendance dates.
const DateLayout = "2006-01-02"

// ParseDate parses a wire date and normalizes it to day precision in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
