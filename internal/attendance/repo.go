package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
	"classtrack/internal/model"
	"classtrack/internal/store"
)

// PostgresRepository persists the attendance ledger.
type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordSelect = `
	SELECT a.id, a.subject_id, a.student_id, a.date, a.status, a.taken_by_id, a.created_at,
		u.id, u.name, COALESCE(u.email, ''), COALESCE(u.student_id, ''),
		s.id, s.name, s.code
	FROM subject_attendance a
	JOIN users u ON u.id = a.student_id
	JOIN subjects s ON s.id = a.subject_id
`

func scanRecord(row interface{ Scan(...any) error }) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	var student model.UserRef
	var subj model.SubjectRef
	err := row.Scan(&rec.ID, &rec.SubjectID, &rec.StudentID, &rec.Date, &rec.Status, &rec.TakenByID, &rec.CreatedAt,
		&student.ID, &student.Name, &student.Email, &student.StudentID,
		&subj.ID, &subj.Name, &subj.Code)
	if err != nil {
		return nil, err
	}
	rec.Student = &student
	rec.Subject = &subj
	return &rec, nil
}

// Filter narrows ledger reads. Zero values mean "no constraint".
type Filter struct {
	Date      *time.Time
	StudentID string
	SubjectID string
}

// List returns records matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]model.AttendanceRecord, error) {
	query := recordSelect
	var args []any
	var clauses []string
	if f.Date != nil {
		args = append(args, *f.Date)
		clauses = append(clauses, "a.date = $"+strconv.Itoa(len(args)))
	}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		clauses = append(clauses, "a.student_id = $"+strconv.Itoa(len(args)))
	}
	if f.SubjectID != "" {
		args = append(args, f.SubjectID)
		clauses = append(clauses, "a.subject_id = $"+strconv.Itoa(len(args)))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY a.date DESC, u.name"
	return r.queryRecords(ctx, query, args...)
}

// ListRange returns records within [start, end], optionally per subject.
func (r *PostgresRepository) ListRange(ctx context.Context, start, end time.Time, subjectID string) ([]model.AttendanceRecord, error) {
	query := recordSelect + " WHERE a.date >= $1 AND a.date <= $2"
	args := []any{start, end}
	if subjectID != "" {
		query += " AND a.subject_id = $3"
		args = append(args, subjectID)
	}
	query += " ORDER BY a.date DESC, u.name"
	return r.queryRecords(ctx, query, args...)
}

func (r *PostgresRepository) queryRecords(ctx context.Context, query string, args ...any) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetByID returns one record, or nil when missing.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, recordSelect+" WHERE a.id = $1", id))
	if err != nil {
		if store.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance by id: %w", err)
	}
	return rec, nil
}

// AnyForSubjectDate reports whether any record exists for (subject, date).
func (r *PostgresRepository) AnyForSubjectDate(ctx context.Context, subjectID string, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subject_attendance WHERE subject_id = $1 AND date = $2)`,
		subjectID, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check day attendance: %w", err)
	}
	return exists, nil
}

// ExistsForTriple reports whether a record exists for (subject, student, date).
func (r *PostgresRepository) ExistsForTriple(ctx context.Context, subjectID, studentID string, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subject_attendance WHERE subject_id = $1 AND student_id = $2 AND date = $3)`,
		subjectID, studentID, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return exists, nil
}

// Insert writes one ledger record. The (subject, student, date) constraint
// turns a lost race into the same conflict as the pre-check.
func (r *PostgresRepository) Insert(ctx context.Context, rec *model.AttendanceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO subject_attendance (id, subject_id, student_id, date, status, taken_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, rec.ID, rec.SubjectID, rec.StudentID, rec.Date, rec.Status, rec.TakenByID)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return apperr.Conflict("Attendance already marked for this date and subject")
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// InsertBatch writes a full day's roll in one transaction; all rows land or
// none do.
func (r *PostgresRepository) InsertBatch(ctx context.Context, records []model.AttendanceRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk attendance: %w", err)
	}
	defer tx.Rollback()

	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subject_attendance (id, subject_id, student_id, date, status, taken_by_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, rec.ID, rec.SubjectID, rec.StudentID, rec.Date, rec.Status, rec.TakenByID); err != nil {
			if store.IsUniqueViolation(err) {
				return apperr.Conflict("Attendance already marked for this date and subject")
			}
			return fmt.Errorf("insert attendance row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk attendance: %w", err)
	}
	return nil
}

// UpdateStatus changes a record's status; the other columns are immutable.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subject_attendance SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Attendance record not found")
	}
	return nil
}

// Delete removes one record.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subject_attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Attendance record not found")
	}
	return nil
}

// Enrolled reports whether the student is enrolled in the subject.
func (r *PostgresRepository) Enrolled(ctx context.Context, studentID, subjectID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM student_subjects WHERE student_id = $1 AND subject_id = $2)`,
		studentID, subjectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// Assigned reports whether the teacher is assigned to the subject.
func (r *PostgresRepository) Assigned(ctx context.Context, teacherID, subjectID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM teacher_subjects WHERE teacher_id = $1 AND subject_id = $2)`,
		teacherID, subjectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return exists, nil
}

// SubjectFlags returns whether the subject exists and has self-marking on.
func (r *PostgresRepository) SubjectFlags(ctx context.Context, subjectID string) (exists, enabled bool, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT attendance_enabled FROM subjects WHERE id = $1`, subjectID).Scan(&enabled)
	if err != nil {
		if store.IsNoRows(err) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("get subject flags: %w", err)
	}
	return true, enabled, nil
}

// Stats aggregates status counts, optionally bounded by date and subject.
func (r *PostgresRepository) Stats(ctx context.Context, start, end *time.Time, subjectID string) (model.AttendanceStats, error) {
	var stats model.AttendanceStats
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`, model.RoleStudent).Scan(&stats.TotalStudents); err != nil {
		return stats, fmt.Errorf("count students: %w", err)
	}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'present'),
			COUNT(*) FILTER (WHERE status = 'absent'),
			COUNT(*) FILTER (WHERE status = 'late')
		FROM subject_attendance
		WHERE TRUE
	`
	var args []any
	if start != nil && end != nil {
		args = append(args, *start)
		query += " AND date >= $" + strconv.Itoa(len(args))
		args = append(args, *end)
		query += " AND date <= $" + strconv.Itoa(len(args))
	}
	if subjectID != "" {
		args = append(args, subjectID)
		query += " AND subject_id = $" + strconv.Itoa(len(args))
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&stats.PresentCount, &stats.AbsentCount, &stats.LateCount); err != nil {
		return stats, fmt.Errorf("aggregate attendance: %w", err)
	}
	return stats, nil
}

// Summary returns every account with its attendance rollup.
func (r *PostgresRepository) Summary(ctx context.Context) ([]model.StudentSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.name, COALESCE(u.email, ''), u.role,
			COALESCE(u.student_id, ''), COALESCE(u.department, ''), COALESCE(u.semester, ''), u.created_at,
			COUNT(a.id),
			COUNT(a.id) FILTER (WHERE a.status = 'present')
		FROM users u
		LEFT JOIN subject_attendance a ON a.student_id = u.id
		GROUP BY u.id
		ORDER BY u.name
	`)
	if err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	defer rows.Close()

	var summary []model.StudentSummary
	for rows.Next() {
		var row model.StudentSummary
		if err := rows.Scan(&row.ID, &row.Username, &row.Name, &row.Email, &row.Role,
			&row.StudentID, &row.Department, &row.Semester, &row.CreatedAt,
			&row.TotalDays, &row.PresentDays); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if row.TotalDays > 0 {
			row.AttendancePercentage = float64(row.PresentDays) / float64(row.TotalDays) * 100
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}
