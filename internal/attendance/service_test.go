package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/apperr"
	"classtrack/internal/auth"
	"classtrack/internal/model"
)

type pair struct{ userID, subjectID string }

type fakeSubject struct {
	exists  bool
	enabled bool
}

type fakeRepo struct {
	records     map[string]*model.AttendanceRecord
	enrollments map[pair]bool
	assignments map[pair]bool
	subjects    map[string]fakeSubject
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:     make(map[string]*model.AttendanceRecord),
		enrollments: make(map[pair]bool),
		assignments: make(map[pair]bool),
		subjects:    make(map[string]fakeSubject),
	}
}

func (r *fakeRepo) List(_ context.Context, f Filter) ([]model.AttendanceRecord, error) {
	var out []model.AttendanceRecord
	for _, rec := range r.records {
		if f.Date != nil && !rec.Date.Equal(*f.Date) {
			continue
		}
		if f.StudentID != "" && rec.StudentID != f.StudentID {
			continue
		}
		if f.SubjectID != "" && rec.SubjectID != f.SubjectID {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (r *fakeRepo) ListRange(_ context.Context, start, end time.Time, subjectID string) ([]model.AttendanceRecord, error) {
	var out []model.AttendanceRecord
	for _, rec := range r.records {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		if subjectID != "" && rec.SubjectID != subjectID {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRepo) AnyForSubjectDate(_ context.Context, subjectID string, date time.Time) (bool, error) {
	for _, rec := range r.records {
		if rec.SubjectID == subjectID && rec.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) ExistsForTriple(_ context.Context, subjectID, studentID string, date time.Time) (bool, error) {
	for _, rec := range r.records {
		if rec.SubjectID == subjectID && rec.StudentID == studentID && rec.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) Insert(_ context.Context, rec *model.AttendanceRecord) error {
	if ok, _ := r.ExistsForTriple(context.Background(), rec.SubjectID, rec.StudentID, rec.Date); ok {
		return apperr.Conflict("Attendance already marked for this date and subject")
	}
	rec.ID = uuid.NewString()
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *fakeRepo) InsertBatch(_ context.Context, records []model.AttendanceRecord) error {
	for i := range records {
		if err := r.Insert(context.Background(), &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, status model.Status) error {
	rec, ok := r.records[id]
	if !ok {
		return apperr.NotFound("Attendance record not found")
	}
	rec.Status = status
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.records[id]; !ok {
		return apperr.NotFound("Attendance record not found")
	}
	delete(r.records, id)
	return nil
}

func (r *fakeRepo) Enrolled(_ context.Context, studentID, subjectID string) (bool, error) {
	return r.enrollments[pair{studentID, subjectID}], nil
}

func (r *fakeRepo) Assigned(_ context.Context, teacherID, subjectID string) (bool, error) {
	return r.assignments[pair{teacherID, subjectID}], nil
}

func (r *fakeRepo) SubjectFlags(_ context.Context, subjectID string) (bool, bool, error) {
	s := r.subjects[subjectID]
	return s.exists, s.enabled, nil
}

func (r *fakeRepo) Stats(_ context.Context, _, _ *time.Time, _ string) (model.AttendanceStats, error) {
	return model.AttendanceStats{}, nil
}

func (r *fakeRepo) Summary(_ context.Context) ([]model.StudentSummary, error) {
	return nil, nil
}

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

var teacher = auth.Actor{ID: "t1", Role: model.RoleTeacher}

func TestBulkCreate(t *testing.T) {
	repo := newFakeRepo()
	repo.assignments[pair{"t1", "s1"}] = true
	svc := NewService(repo)

	in := BulkInput{
		Date:      "2026-03-02",
		SubjectID: "s1",
		Entries: []BulkEntry{
			{StudentID: "a", Status: model.StatusPresent},
			{StudentID: "b", Status: model.StatusLate},
		},
	}
	require.NoError(t, svc.BulkCreate(context.Background(), teacher, in))

	records, err := svc.List(context.Background(), Query{SubjectID: "s1"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "t1", rec.TakenByID)
		assert.Equal(t, day("2026-03-02"), rec.Date)
	}
}

func TestBulkCreateDayAlreadyTaken(t *testing.T) {
	repo := newFakeRepo()
	repo.assignments[pair{"t1", "s1"}] = true
	svc := NewService(repo)

	in := BulkInput{
		Date:      "2026-03-02",
		SubjectID: "s1",
		Entries:   []BulkEntry{{StudentID: "a", Status: model.StatusPresent}},
	}
	require.NoError(t, svc.BulkCreate(context.Background(), teacher, in))

	// even a disjoint student set is rejected once the day has any record
	in.Entries = []BulkEntry{{StudentID: "b", Status: model.StatusPresent}}
	err := svc.BulkCreate(context.Background(), teacher, in)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Attendance already marked for this date and subject", apperr.Message(err))
}

func TestBulkCreateUnassignedTeacher(t *testing.T) {
	svc := NewService(newFakeRepo())

	err := svc.BulkCreate(context.Background(), teacher, BulkInput{
		Date:      "2026-03-02",
		SubjectID: "s1",
		Entries:   []BulkEntry{{StudentID: "a", Status: model.StatusPresent}},
	})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "You are not assigned to this subject", apperr.Message(err))
}

func TestBulkCreateValidation(t *testing.T) {
	repo := newFakeRepo()
	repo.assignments[pair{"t1", "s1"}] = true
	svc := NewService(repo)

	err := svc.BulkCreate(context.Background(), teacher, BulkInput{Date: "03/02/2026", SubjectID: "s1",
		Entries: []BulkEntry{{StudentID: "a", Status: model.StatusPresent}}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Invalid date format", apperr.Message(err))

	err = svc.BulkCreate(context.Background(), teacher, BulkInput{Date: "2026-03-02", SubjectID: "s1"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = svc.BulkCreate(context.Background(), teacher, BulkInput{Date: "2026-03-02", SubjectID: "s1",
		Entries: []BulkEntry{{StudentID: "a", Status: "skipped"}}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Invalid status. Must be present, absent, or late", apperr.Message(err))
}

func selfMarkRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.subjects["s1"] = fakeSubject{exists: true, enabled: true}
	repo.enrollments[pair{"st1", "s1"}] = true
	return repo
}

func TestSelfMark(t *testing.T) {
	repo := selfMarkRepo()
	svc := NewService(repo)

	actor := auth.Actor{ID: "st1", Role: model.RoleStudent}
	in := SelfMarkInput{StudentID: "st1", SubjectID: "s1", Date: "2026-03-02", Status: model.StatusPresent}

	rec, err := svc.SelfMark(context.Background(), actor, in)
	require.NoError(t, err)
	assert.Equal(t, "st1", rec.TakenByID)
	assert.NotEmpty(t, rec.ID)

	_, err = svc.SelfMark(context.Background(), actor, in)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Attendance already marked for this date and subject", apperr.Message(err))
}

func TestSelfMarkIdentityMismatch(t *testing.T) {
	svc := NewService(selfMarkRepo())

	_, err := svc.SelfMark(context.Background(), auth.Actor{ID: "st2", Role: model.RoleStudent},
		SelfMarkInput{StudentID: "st1", SubjectID: "s1", Date: "2026-03-02", Status: model.StatusPresent})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "You can only mark your own attendance", apperr.Message(err))
}

func TestSelfMarkDisabledSubject(t *testing.T) {
	repo := selfMarkRepo()
	repo.subjects["s1"] = fakeSubject{exists: true, enabled: false}
	svc := NewService(repo)

	_, err := svc.SelfMark(context.Background(), auth.Actor{ID: "st1", Role: model.RoleStudent},
		SelfMarkInput{StudentID: "st1", SubjectID: "s1", Date: "2026-03-02", Status: model.StatusPresent})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "Attendance is not enabled for this subject", apperr.Message(err))
}

func TestSelfMarkMissingSubject(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.SelfMark(context.Background(), auth.Actor{ID: "st1", Role: model.RoleStudent},
		SelfMarkInput{StudentID: "st1", SubjectID: "ghost", Date: "2026-03-02", Status: model.StatusPresent})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Subject not found", apperr.Message(err))
}

func TestSelfMarkNotEnrolled(t *testing.T) {
	repo := selfMarkRepo()
	delete(repo.enrollments, pair{"st1", "s1"})
	svc := NewService(repo)

	_, err := svc.SelfMark(context.Background(), auth.Actor{ID: "st1", Role: model.RoleStudent},
		SelfMarkInput{StudentID: "st1", SubjectID: "s1", Date: "2026-03-02", Status: model.StatusPresent})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Student not enrolled in this subject", apperr.Message(err))
}

func seedRecord(repo *fakeRepo, subjectID, studentID, date string) string {
	rec := &model.AttendanceRecord{
		SubjectID: subjectID,
		StudentID: studentID,
		Date:      day(date),
		Status:    model.StatusPresent,
		TakenByID: "t1",
	}
	if err := repo.Insert(context.Background(), rec); err != nil {
		panic(err)
	}
	return rec.ID
}

func TestUpdate(t *testing.T) {
	repo := newFakeRepo()
	repo.assignments[pair{"t1", "s1"}] = true
	id := seedRecord(repo, "s1", "st1", "2026-03-02")
	svc := NewService(repo)

	rec, err := svc.Update(context.Background(), teacher, id, model.StatusLate)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLate, rec.Status)
	assert.Equal(t, model.StatusLate, repo.records[id].Status)
}

func TestUpdateInvalidStatus(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Update(context.Background(), teacher, "any", "excused")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateUnassignedTeacher(t *testing.T) {
	repo := newFakeRepo()
	id := seedRecord(repo, "s1", "st1", "2026-03-02")
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), auth.Actor{ID: "t2", Role: model.RoleTeacher}, id, model.StatusAbsent)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "Only teachers assigned to this subject can edit attendance", apperr.Message(err))
}

func TestUpdateMissingRecord(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Update(context.Background(), teacher, "ghost", model.StatusAbsent)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Attendance record not found", apperr.Message(err))
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo()
	repo.assignments[pair{"t1", "s1"}] = true
	id := seedRecord(repo, "s1", "st1", "2026-03-02")
	svc := NewService(repo)

	require.NoError(t, svc.Delete(context.Background(), teacher, id))
	assert.Empty(t, repo.records)

	err := svc.Delete(context.Background(), teacher, id)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteUnassignedTeacher(t *testing.T) {
	repo := newFakeRepo()
	id := seedRecord(repo, "s1", "st1", "2026-03-02")
	svc := NewService(repo)

	err := svc.Delete(context.Background(), auth.Actor{ID: "t2", Role: model.RoleTeacher}, id)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "Only teachers assigned to this subject can delete attendance", apperr.Message(err))
}

func TestListFiltersByDate(t *testing.T) {
	repo := newFakeRepo()
	seedRecord(repo, "s1", "a", "2026-03-02")
	seedRecord(repo, "s1", "b", "2026-03-03")
	svc := NewService(repo)

	records, err := svc.List(context.Background(), Query{Date: "2026-03-02"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].StudentID)

	_, err = svc.List(context.Background(), Query{Date: "yesterday"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListRange(t *testing.T) {
	repo := newFakeRepo()
	seedRecord(repo, "s1", "a", "2026-03-01")
	seedRecord(repo, "s1", "a", "2026-03-05")
	seedRecord(repo, "s1", "a", "2026-03-10")
	svc := NewService(repo)

	records, err := svc.ListRange(context.Background(), "2026-03-02", "2026-03-09", "s1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, day("2026-03-05"), records[0].Date)
}

func TestListRangeRequiresBothBounds(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.ListRange(context.Background(), "2026-03-02", "", "s1")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Invalid date format", apperr.Message(err))

	_, err = svc.ListRange(context.Background(), "", "2026-03-09", "s1")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListByStudentSubjectRequiresEnrollment(t *testing.T) {
	repo := newFakeRepo()
	seedRecord(repo, "s1", "st1", "2026-03-02")
	svc := NewService(repo)

	_, err := svc.ListByStudentSubject(context.Background(), "st1", "s1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Student not enrolled in this subject", apperr.Message(err))

	repo.enrollments[pair{"st1", "s1"}] = true
	records, err := svc.ListByStudentSubject(context.Background(), "st1", "s1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestStatsRejectsBadBounds(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Stats(context.Background(), StatsQuery{StartDate: "bad", EndDate: "2026-03-09"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// a single bound is ignored rather than rejected
	_, err = svc.Stats(context.Background(), StatsQuery{StartDate: "2026-03-02"})
	require.NoError(t, err)
}
