package subject

import (
	"context"

	"classtrack/internal/apperr"
	"classtrack/internal/auth"
	"classtrack/internal/model"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	Create(ctx context.Context, s *model.Subject) error
	GetByID(ctx context.Context, id string) (*model.Subject, error)
	GetByCode(ctx context.Context, code string) (*model.Subject, error)
	GetDetail(ctx context.Context, id string) (*model.Subject, error)
	ListAll(ctx context.Context) ([]model.Subject, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]model.Subject, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.Subject, error)
	GetUserWithRole(ctx context.Context, id string, role model.Role) (*model.UserRef, error)
	AssignmentExists(ctx context.Context, teacherID, subjectID string) (bool, error)
	CreateAssignment(ctx context.Context, teacherID, subjectID string) (*model.TeacherAssignment, error)
	DeleteAssignment(ctx context.Context, teacherID, subjectID string) error
	EnrollmentExists(ctx context.Context, studentID, subjectID string) (bool, error)
	CreateEnrollment(ctx context.Context, studentID, subjectID string) (*model.StudentEnrollment, error)
	DeleteEnrollment(ctx context.Context, studentID, subjectID string) error
	CountStudents(ctx context.Context, ids []string) (int, error)
	ReplaceEnrollments(ctx context.Context, subjectID string, studentIDs []string) error
	SetAttendanceEnabled(ctx context.Context, subjectID string, enabled bool) error
}

// Service implements subject and association operations.
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

// ListAll returns every subject with associations. Admin view.
func (s *Service) ListAll(ctx context.Context) ([]model.Subject, error) {
	subjects, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch subjects", err)
	}
	return subjects, nil
}

// ListForTeacher returns the subjects assigned to the acting teacher.
func (s *Service) ListForTeacher(ctx context.Context, teacherID string) ([]model.Subject, error) {
	subjects, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch teacher subjects", err)
	}
	return subjects, nil
}

// ListForStudent returns the subjects the acting student is enrolled in.
func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]model.Subject, error) {
	subjects, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch student subjects", err)
	}
	return subjects, nil
}

// CreateInput is the subject creation payload.
type CreateInput struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Department  string `json:"department"`
	Description string `json:"description"`
}

// Create registers a new subject with a unique code.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Subject, error) {
	if in.Name == "" || in.Code == "" || in.Department == "" {
		return nil, apperr.Validation("Name, code, and department are required")
	}
	existing, err := s.repo.GetByCode(ctx, in.Code)
	if err != nil {
		return nil, apperr.Internal("Failed to create subject", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("Subject code already exists")
	}
	subj := &model.Subject{
		Name:        in.Name,
		Code:        in.Code,
		Department:  in.Department,
		Description: in.Description,
		Active:      true,
	}
	if err := s.repo.Create(ctx, subj); err != nil {
		return nil, internalOr(err, "Failed to create subject")
	}
	return subj, nil
}

// AssignTeacher links a teacher to a subject after verifying both exist and
// the pair is not yet assigned.
func (s *Service) AssignTeacher(ctx context.Context, subjectID, teacherID string) (*model.TeacherAssignment, error) {
	if teacherID == "" {
		return nil, apperr.Validation("Teacher ID is required")
	}
	teacher, err := s.repo.GetUserWithRole(ctx, teacherID, model.RoleTeacher)
	if err != nil {
		return nil, apperr.Internal("Failed to assign teacher", err)
	}
	if teacher == nil {
		return nil, apperr.NotFound("Teacher not found")
	}
	subj, err := s.repo.GetByID(ctx, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to assign teacher", err)
	}
	if subj == nil {
		return nil, apperr.NotFound("Subject not found")
	}
	assigned, err := s.repo.AssignmentExists(ctx, teacherID, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to assign teacher", err)
	}
	if assigned {
		return nil, apperr.Conflict("Teacher is already assigned to this subject")
	}
	a, err := s.repo.CreateAssignment(ctx, teacherID, subjectID)
	if err != nil {
		return nil, internalOr(err, "Failed to assign teacher")
	}
	a.Teacher = teacher
	a.Subject = &model.SubjectRef{ID: subj.ID, Name: subj.Name, Code: subj.Code}
	return a, nil
}

// UnassignTeacher removes an existing assignment; a missing pair is an error,
// not a silent no-op.
func (s *Service) UnassignTeacher(ctx context.Context, subjectID, teacherID string) error {
	subj, err := s.repo.GetByID(ctx, subjectID)
	if err != nil {
		return apperr.Internal("Failed to unassign teacher from subject", err)
	}
	if subj == nil {
		return apperr.NotFound("Subject not found")
	}
	teacher, err := s.repo.GetUserWithRole(ctx, teacherID, model.RoleTeacher)
	if err != nil {
		return apperr.Internal("Failed to unassign teacher from subject", err)
	}
	if teacher == nil {
		return apperr.NotFound("Teacher not found")
	}
	return internalOr(s.repo.DeleteAssignment(ctx, teacherID, subjectID), "Failed to unassign teacher from subject")
}

// EnrollStudent links a student to a subject.
func (s *Service) EnrollStudent(ctx context.Context, subjectID, studentID string) (*model.StudentEnrollment, error) {
	if studentID == "" {
		return nil, apperr.Validation("Student ID is required")
	}
	student, err := s.repo.GetUserWithRole(ctx, studentID, model.RoleStudent)
	if err != nil {
		return nil, apperr.Internal("Failed to enroll student", err)
	}
	if student == nil {
		return nil, apperr.NotFound("Student not found")
	}
	subj, err := s.repo.GetByID(ctx, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to enroll student", err)
	}
	if subj == nil {
		return nil, apperr.NotFound("Subject not found")
	}
	enrolled, err := s.repo.EnrollmentExists(ctx, studentID, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to enroll student", err)
	}
	if enrolled {
		return nil, apperr.Conflict("Student is already enrolled in this subject")
	}
	e, err := s.repo.CreateEnrollment(ctx, studentID, subjectID)
	if err != nil {
		return nil, internalOr(err, "Failed to enroll student")
	}
	e.Student = student
	e.Subject = &model.SubjectRef{ID: subj.ID, Name: subj.Name, Code: subj.Code}
	return e, nil
}

// RemoveStudent drops an existing enrollment.
func (s *Service) RemoveStudent(ctx context.Context, subjectID, studentID string) error {
	subj, err := s.repo.GetByID(ctx, subjectID)
	if err != nil {
		return apperr.Internal("Failed to remove student from subject", err)
	}
	if subj == nil {
		return apperr.NotFound("Subject not found")
	}
	student, err := s.repo.GetUserWithRole(ctx, studentID, model.RoleStudent)
	if err != nil {
		return apperr.Internal("Failed to remove student from subject", err)
	}
	if student == nil {
		return apperr.NotFound("Student not found")
	}
	return internalOr(s.repo.DeleteEnrollment(ctx, studentID, subjectID), "Failed to remove student from subject")
}

// BulkEnroll atomically replaces the entire enrollment set for a subject.
// Callers pass the complete desired membership; nothing is written unless
// every id resolves to a STUDENT account.
func (s *Service) BulkEnroll(ctx context.Context, subjectID string, studentIDs []string) (*model.Subject, error) {
	if len(studentIDs) == 0 {
		return nil, apperr.Validation("Student IDs array is required and must not be empty")
	}
	subj, err := s.repo.GetByID(ctx, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to enroll students", err)
	}
	if subj == nil {
		return nil, apperr.NotFound("Subject not found")
	}
	n, err := s.repo.CountStudents(ctx, studentIDs)
	if err != nil {
		return nil, apperr.Internal("Failed to enroll students", err)
	}
	if n != len(studentIDs) {
		return nil, apperr.Validation("Some students were not found or are not valid students")
	}
	if err := s.repo.ReplaceEnrollments(ctx, subjectID, studentIDs); err != nil {
		return nil, internalOr(err, "Failed to enroll students")
	}
	detail, err := s.repo.GetDetail(ctx, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to enroll students", err)
	}
	return detail, nil
}

// ToggleAttendance flips the subject's self-marking flag. Admins may toggle
// any subject; a teacher only one they are assigned to.
func (s *Service) ToggleAttendance(ctx context.Context, actor auth.Actor, subjectID string, enabled bool) (*model.Subject, error) {
	subj, err := s.repo.GetByID(ctx, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to toggle attendance for subject", err)
	}
	if subj == nil {
		return nil, apperr.NotFound("Subject not found")
	}
	if actor.Role == model.RoleTeacher {
		assigned, err := s.repo.AssignmentExists(ctx, actor.ID, subjectID)
		if err != nil {
			return nil, apperr.Internal("Failed to toggle attendance for subject", err)
		}
		if !assigned {
			return nil, apperr.ForbiddenMsg("You are not assigned to this subject")
		}
	}
	if err := s.repo.SetAttendanceEnabled(ctx, subjectID, enabled); err != nil {
		return nil, internalOr(err, "Failed to toggle attendance for subject")
	}
	detail, err := s.repo.GetDetail(ctx, subjectID)
	if err != nil {
		return nil, apperr.Internal("Failed to toggle attendance for subject", err)
	}
	return detail, nil
}
