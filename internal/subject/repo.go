package subject

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
	"classtrack/internal/model"
	"classtrack/internal/store"
)

// PostgresRepository persists subjects and their associations.
type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const subjectColumns = `id, code, name, department, COALESCE(description, ''),
	is_active, attendance_enabled, created_at`

func scanSubject(row interface{ Scan(...any) error }) (*model.Subject, error) {
	var s model.Subject
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Department, &s.Description,
		&s.Active, &s.AttendanceEnabled, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new subject. Duplicate code maps to conflict.
func (r *PostgresRepository) Create(ctx context.Context, s *model.Subject) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO subjects (id, code, name, department, description, is_active, attendance_enabled)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		RETURNING created_at
	`, s.ID, s.Code, s.Name, s.Department, s.Description, s.Active, s.AttendanceEnabled)
	if err := row.Scan(&s.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return apperr.Conflict("Subject code already exists")
		}
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// GetByID returns one subject without associations, or nil when missing.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*model.Subject, error) {
	s, err := scanSubject(r.db.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id))
	if err != nil {
		if store.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject by id: %w", err)
	}
	return s, nil
}

// GetByCode returns one subject by its unique code, or nil.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*model.Subject, error) {
	s, err := scanSubject(r.db.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE code = $1`, code))
	if err != nil {
		if store.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject by code: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) listWhere(ctx context.Context, where string, args ...any) ([]model.Subject, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+subjectColumns+` FROM subjects `+where+` ORDER BY code`, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subjects, r.attach(ctx, subjects)
}

// ListAll returns every subject with assigned teachers and enrolled students.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]model.Subject, error) {
	return r.listWhere(ctx, "")
}

// ListByTeacher returns the subjects a teacher is assigned to.
func (r *PostgresRepository) ListByTeacher(ctx context.Context, teacherID string) ([]model.Subject, error) {
	return r.listWhere(ctx,
		`WHERE id IN (SELECT subject_id FROM teacher_subjects WHERE teacher_id = $1)`, teacherID)
}

// ListByStudent returns the subjects a student is enrolled in.
func (r *PostgresRepository) ListByStudent(ctx context.Context, studentID string) ([]model.Subject, error) {
	return r.listWhere(ctx,
		`WHERE id IN (SELECT subject_id FROM student_subjects WHERE student_id = $1)`, studentID)
}

// GetDetail returns one subject with associations, or nil.
func (r *PostgresRepository) GetDetail(ctx context.Context, id string) (*model.Subject, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil || s == nil {
		return s, err
	}
	list := []model.Subject{*s}
	if err := r.attach(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// attach loads teacher assignments and student enrollments for the given
// subjects in two queries and distributes them in memory.
func (r *PostgresRepository) attach(ctx context.Context, subjects []model.Subject) error {
	if len(subjects) == 0 {
		return nil
	}
	ids := make([]string, len(subjects))
	index := make(map[string]*model.Subject, len(subjects))
	for i := range subjects {
		ids[i] = subjects[i].ID
		index[subjects[i].ID] = &subjects[i]
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ts.subject_id, u.id, u.name, COALESCE(u.email, '')
		FROM teacher_subjects ts
		JOIN users u ON u.id = ts.teacher_id
		WHERE ts.subject_id = ANY($1)
		ORDER BY u.name
	`, ids)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var subjectID string
		var ref model.UserRef
		if err := rows.Scan(&subjectID, &ref.ID, &ref.Name, &ref.Email); err != nil {
			return fmt.Errorf("scan assignment: %w", err)
		}
		s := index[subjectID]
		s.Teachers = append(s.Teachers, ref)
		s.TeacherCount++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT ss.subject_id, u.id, u.name, COALESCE(u.email, ''), COALESCE(u.student_id, '')
		FROM student_subjects ss
		JOIN users u ON u.id = ss.student_id
		WHERE ss.subject_id = ANY($1)
		ORDER BY u.name
	`, ids)
	if err != nil {
		return fmt.Errorf("load enrollments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var subjectID string
		var ref model.UserRef
		if err := rows.Scan(&subjectID, &ref.ID, &ref.Name, &ref.Email, &ref.StudentID); err != nil {
			return fmt.Errorf("scan enrollment: %w", err)
		}
		s := index[subjectID]
		s.Students = append(s.Students, ref)
		s.StudentCount++
	}
	return rows.Err()
}

// GetUserWithRole returns the user ref when the account exists with the
// expected role, or nil otherwise.
func (r *PostgresRepository) GetUserWithRole(ctx context.Context, id string, role model.Role) (*model.UserRef, error) {
	var ref model.UserRef
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(student_id, '')
		FROM users WHERE id = $1 AND role = $2
	`, id, role).Scan(&ref.ID, &ref.Name, &ref.Email, &ref.StudentID)
	if err != nil {
		if store.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user with role: %w", err)
	}
	return &ref, nil
}

// AssignmentExists reports whether the (teacher, subject) pair is assigned.
func (r *PostgresRepository) AssignmentExists(ctx context.Context, teacherID, subjectID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM teacher_subjects WHERE teacher_id = $1 AND subject_id = $2)`,
		teacherID, subjectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return exists, nil
}

// CreateAssignment links a teacher to a subject. The composite primary key
// turns a lost race into the same conflict as the pre-check.
func (r *PostgresRepository) CreateAssignment(ctx context.Context, teacherID, subjectID string) (*model.TeacherAssignment, error) {
	a := model.TeacherAssignment{TeacherID: teacherID, SubjectID: subjectID}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)
		RETURNING created_at
	`, teacherID, subjectID)
	if err := row.Scan(&a.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.Conflict("Teacher is already assigned to this subject")
		}
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return &a, nil
}

// DeleteAssignment removes the pair; a missing pair is a not-found error.
func (r *PostgresRepository) DeleteAssignment(ctx context.Context, teacherID, subjectID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM teacher_subjects WHERE teacher_id = $1 AND subject_id = $2`, teacherID, subjectID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Teacher is not assigned to this subject")
	}
	return nil
}

// EnrollmentExists reports whether the (student, subject) pair is enrolled.
func (r *PostgresRepository) EnrollmentExists(ctx context.Context, studentID, subjectID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM student_subjects WHERE student_id = $1 AND subject_id = $2)`,
		studentID, subjectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// CreateEnrollment links a student to a subject.
func (r *PostgresRepository) CreateEnrollment(ctx context.Context, studentID, subjectID string) (*model.StudentEnrollment, error) {
	e := model.StudentEnrollment{StudentID: studentID, SubjectID: subjectID}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO student_subjects (student_id, subject_id) VALUES ($1, $2)
		RETURNING created_at
	`, studentID, subjectID)
	if err := row.Scan(&e.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.Conflict("Student is already enrolled in this subject")
		}
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	return &e, nil
}

// DeleteEnrollment removes the pair; a missing pair is a not-found error.
func (r *PostgresRepository) DeleteEnrollment(ctx context.Context, studentID, subjectID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM student_subjects WHERE student_id = $1 AND subject_id = $2`, studentID, subjectID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Student is not enrolled in this subject")
	}
	return nil
}

// CountStudents counts accounts among ids holding the STUDENT role.
func (r *PostgresRepository) CountStudents(ctx context.Context, ids []string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE id = ANY($1) AND role = $2`, ids, model.RoleStudent).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

// ReplaceEnrollments atomically swaps the whole enrollment set for a subject.
func (r *PostgresRepository) ReplaceEnrollments(ctx context.Context, subjectID string, studentIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace enrollments: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM student_subjects WHERE subject_id = $1`, subjectID); err != nil {
		return fmt.Errorf("clear enrollments: %w", err)
	}
	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO student_subjects (student_id, subject_id) VALUES ($1, $2)`,
			studentID, subjectID); err != nil {
			return fmt.Errorf("insert enrollment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace enrollments: %w", err)
	}
	return nil
}

// SetAttendanceEnabled flips the subject's self-marking flag.
func (r *PostgresRepository) SetAttendanceEnabled(ctx context.Context, subjectID string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subjects SET attendance_enabled = $2 WHERE id = $1`, subjectID, enabled)
	if err != nil {
		return fmt.Errorf("set attendance enabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Subject not found")
	}
	return nil
}
