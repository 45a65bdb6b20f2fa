package attendance

import (
	"context"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/auth"
	"classtrack/internal/model"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	List(ctx context.Context, f Filter) ([]model.AttendanceRecord, error)
	ListRange(ctx context.Context, start, end time.Time, subjectID string) ([]model.AttendanceRecord, error)
	GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	AnyForSubjectDate(ctx context.Context, subjectID string, date time.Time) (bool, error)
	ExistsForTriple(ctx context.Context, subjectID, studentID string, date time.Time) (bool, error)
	Insert(ctx context.Context, rec *model.AttendanceRecord) error
	InsertBatch(ctx context.Context, records []model.AttendanceRecord) error
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	Delete(ctx context.Context, id string) error
	Enrolled(ctx context.Context, studentID, subjectID string) (bool, error)
	Assigned(ctx context.Context, teacherID, subjectID string) (bool, error)
	SubjectFlags(ctx context.Context, subjectID string) (exists, enabled bool, err error)
	Stats(ctx context.Context, start, end *time.Time, subjectID string) (model.AttendanceStats, error)
	Summary(ctx context.Context) ([]model.StudentSummary, error)
}

// Service implements the attendance ledger operations.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func internalOr(err error, msg string) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Internal(msg, err)
}

// Query is the filter surface for ledger reads; all fields optional.
type Query struct {
	Date      string
	StudentID string
	SubjectID string
}

// List returns records matching the query.
func (s *Service) List(ctx context.Context, q Query) ([]model.AttendanceRecord, error) {
	var f Filter
	if q.Date != "" {
		d, err := model.ParseDate(q.Date)
		if err != nil {
			return nil, apperr.Validation("Invalid date format")
		}
		f.Date = &d
	}
	f.StudentID = q.StudentID
	f.SubjectID = q.SubjectID
	records, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch attendance records", err)
	}
	return records, nil
}

// ListRange returns records within an inclusive date range. Both bounds must
// parse as dates.
func (s *Service) ListRange(ctx context.Context, startDate, endDate, subjectID string) ([]model.AttendanceRecord, error) {
	start, err := model.ParseDate(startDate)
	if err != nil {
		return nil, apperr.Validation("Invalid date format")
	}
	end, err := model.ParseDate(endDate)
	if err != nil {
		return nil, apperr.Validation("Invalid date format")
	}
	records, err := s.repo.ListRange(ctx, start, end, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch attendance records by date range", err)
	}
	return records, nil
}

// ListByStudent returns one student's full attendance history.
func (s *Service) ListByStudent(ctx context.Context, studentID string) ([]model.AttendanceRecord, error) {
	records, err := s.repo.List(ctx, Filter{StudentID: studentID})
	if err != nil {
		return nil, apperr.Internal("Failed to fetch student attendance records", err)
	}
	return records, nil
}

// ListByStudentSubject returns a student's history in one subject; the
// student must be enrolled.
func (s *Service) ListByStudentSubject(ctx context.Context, studentID, subjectID string) ([]model.AttendanceRecord, error) {
	enrolled, err := s.repo.Enrolled(ctx, studentID, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch student subject attendance records", err)
	}
	if !enrolled {
		return nil, apperr.NotFound("Student not enrolled in this subject")
	}
	records, err := s.repo.List(ctx, Filter{StudentID: studentID, SubjectID: subjectID})
	if err != nil {
		return nil, apperr.Internal("Failed to fetch student subject attendance records", err)
	}
	return records, nil
}

// BulkEntry is one (student, status) pair of a class roll.
type BulkEntry struct {
	StudentID string       `json:"studentId"`
	Status    model.Status `json:"status"`
}

// BulkInput is a teacher's roll submission for one subject and date.
type BulkInput struct {
	Date      string      `json:"date"`
	SubjectID string      `json:"subjectId"`
	Entries   []BulkEntry `json:"attendanceData"`
}

// BulkCreate records a whole class roll at once. The day must be untouched
// for the subject; the acting teacher must hold an assignment to it; all
// rows are written in one transaction.
func (s *Service) BulkCreate(ctx context.Context, actor auth.Actor, in BulkInput) error {
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return apperr.Validation("Invalid date format")
	}
	if in.SubjectID == "" || len(in.Entries) == 0 {
		return apperr.Validation("Subject and attendance data are required")
	}
	for _, entry := range in.Entries {
		if entry.StudentID == "" || !entry.Status.Valid() {
			return apperr.Validation("Invalid status. Must be present, absent, or late")
		}
	}
	assigned, err := s.repo.Assigned(ctx, actor.ID, in.SubjectID)
	if err != nil {
		return apperr.Internal("Failed to create attendance records", err)
	}
	if !assigned {
		return apperr.ForbiddenMsg("You are not assigned to this subject")
	}
	taken, err := s.repo.AnyForSubjectDate(ctx, in.SubjectID, date)
	if err != nil {
		return apperr.Internal("Failed to create attendance records", err)
	}
	if taken {
		return apperr.Conflict("Attendance already marked for this date and subject")
	}
	records := make([]model.AttendanceRecord, len(in.Entries))
	for i, entry := range in.Entries {
		records[i] = model.AttendanceRecord{
			SubjectID: in.SubjectID,
			StudentID: entry.StudentID,
			Date:      date,
			Status:    entry.Status,
			TakenByID: actor.ID,
		}
	}
	return internalOr(s.repo.InsertBatch(ctx, records), "Failed to create attendance records")
}

// SelfMarkInput is a student's own attendance submission.
type SelfMarkInput struct {
	StudentID string       `json:"studentId"`
	SubjectID string       `json:"subjectId"`
	Date      string       `json:"date"`
	Status    model.Status `json:"status"`
}

// SelfMark records a student's own attendance. The actor must be the target
// student, enrolled, and the subject must have self-marking enabled; a second
// submission for the same day is rejected, never overwritten.
func (s *Service) SelfMark(ctx context.Context, actor auth.Actor, in SelfMarkInput) (*model.AttendanceRecord, error) {
	if actor.ID != in.StudentID {
		return nil, apperr.ForbiddenMsg("You can only mark your own attendance")
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return nil, apperr.Validation("Invalid date format")
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("Invalid status. Must be present, absent, or late")
	}
	exists, enabled, err := s.repo.SubjectFlags(ctx, in.SubjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to mark attendance", err)
	}
	if !exists {
		return nil, apperr.NotFound("Subject not found")
	}
	if !enabled {
		return nil, apperr.ForbiddenMsg("Attendance is not enabled for this subject")
	}
	enrolled, err := s.repo.Enrolled(ctx, in.StudentID, in.SubjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to mark attendance", err)
	}
	if !enrolled {
		return nil, apperr.NotFound("Student not enrolled in this subject")
	}
	marked, err := s.repo.ExistsForTriple(ctx, in.SubjectID, in.StudentID, date)
	if err != nil {
		return nil, apperr.Internal("Failed to mark attendance", err)
	}
	if marked {
		return nil, apperr.Conflict("Attendance already marked for this date and subject")
	}
	rec := &model.AttendanceRecord{
		SubjectID: in.SubjectID,
		StudentID: in.StudentID,
		Date:      date,
		Status:    in.Status,
		TakenByID: actor.ID,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, internalOr(err, "Failed to mark attendance")
	}
	return rec, nil
}

// requireAssignedTeacher loads a record and checks the actor is a teacher
// assigned to its subject.
func (s *Service) requireAssignedTeacher(ctx context.Context, actor auth.Actor, id, denial string) (*model.AttendanceRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to load attendance record", err)
	}
	if rec == nil {
		return nil, apperr.NotFound("Attendance record not found")
	}
	if actor.Role != model.RoleTeacher {
		return nil, apperr.ForbiddenMsg(denial)
	}
	assigned, err := s.repo.Assigned(ctx, actor.ID, rec.SubjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to load attendance record", err)
	}
	if !assigned {
		return nil, apperr.ForbiddenMsg(denial)
	}
	return rec, nil
}

// Update changes a record's status. Only an assigned teacher may edit, and
// only the status field is mutable.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, status model.Status) (*model.AttendanceRecord, error) {
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status. Must be present, absent, or late")
	}
	rec, err := s.requireAssignedTeacher(ctx, actor, id, "Only teachers assigned to this subject can edit attendance")
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, internalOr(err, "Failed to update attendance record")
	}
	rec.Status = status
	return rec, nil
}

// Delete removes a record. Only an assigned teacher may delete.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if _, err := s.requireAssignedTeacher(ctx, actor, id, "Only teachers assigned to this subject can delete attendance"); err != nil {
		return err
	}
	return internalOr(s.repo.Delete(ctx, id), "Failed to delete attendance record")
}

// StatsQuery bounds the stats aggregation; all fields optional, but date
// bounds only apply when both are present and valid.
type StatsQuery struct {
	StartDate string
	EndDate   string
	SubjectID string
}

// Stats aggregates status counts along with the student population size.
func (s *Service) Stats(ctx context.Context, q StatsQuery) (model.AttendanceStats, error) {
	var start, end *time.Time
	if q.StartDate != "" && q.EndDate != "" {
		st, err := model.ParseDate(q.StartDate)
		if err != nil {
			return model.AttendanceStats{}, apperr.Validation("Invalid date format")
		}
		en, err := model.ParseDate(q.EndDate)
		if err != nil {
			return model.AttendanceStats{}, apperr.Validation("Invalid date format")
		}
		start, end = &st, &en
	}
	stats, err := s.repo.Stats(ctx, start, end, q.SubjectID)
	if err != nil {
		return model.AttendanceStats{}, apperr.Internal("Failed to fetch attendance statistics", err)
	}
	return stats, nil
}

// Summary returns the per-student attendance percentage rollup.
func (s *Service) Summary(ctx context.Context) ([]model.StudentSummary, error) {
	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to generate summary", err)
	}
	return summary, nil
}
