package subject

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classtrack/internal/apperr"
	"classtrack/internal/auth"
)

// Handler exposes the subject routes.
type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the protected subject routes on api.
func (h *Handler) RegisterRoutes(api gin.IRoutes) {
	api.GET("/subjects", auth.Require(auth.ResourceSubjects, auth.OpList), h.List)
	api.GET("/subjects/teacher", auth.Require(auth.ResourceSubjects, auth.OpTeacherView), h.ListForTeacher)
	api.GET("/subjects/student", auth.Require(auth.ResourceSubjects, auth.OpStudentView), h.ListForStudent)
	api.POST("/subjects", auth.Require(auth.ResourceSubjects, auth.OpCreate), h.Create)
	api.POST("/subjects/:id/assign-teacher", auth.Require(auth.ResourceSubjects, auth.OpAssignTeacher), h.AssignTeacher)
	api.DELETE("/subjects/:id/unassign-teacher/:teacherId", auth.Require(auth.ResourceSubjects, auth.OpAssignTeacher), h.UnassignTeacher)
	api.POST("/subjects/:id/enroll-student", auth.Require(auth.ResourceSubjects, auth.OpEnrollStudent), h.EnrollStudent)
	api.POST("/subjects/:id/enroll-students", auth.Require(auth.ResourceSubjects, auth.OpEnrollStudent), h.EnrollStudents)
	api.DELETE("/subjects/:id/remove-student/:studentId", auth.Require(auth.ResourceSubjects, auth.OpEnrollStudent), h.RemoveStudent)
	api.PATCH("/subjects/:id/toggle-attendance", auth.Require(auth.ResourceSubjects, auth.OpToggleAttendance), h.ToggleAttendance)
}

func (h *Handler) List(c *gin.Context) {
	subjects, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

func (h *Handler) ListForTeacher(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	subjects, err := h.svc.ListForTeacher(c.Request.Context(), actor.ID)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

func (h *Handler) ListForStudent(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	subjects, err := h.svc.ListForStudent(c.Request.Context(), actor.ID)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Name, code, and department are required"))
		return
	}
	subj, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, subj)
}

func (h *Handler) AssignTeacher(c *gin.Context) {
	var req struct {
		TeacherID string `json:"teacherId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Teacher ID is required"))
		return
	}
	a, err := h.svc.AssignTeacher(c.Request.Context(), c.Param("id"), req.TeacherID)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) UnassignTeacher(c *gin.Context) {
	if err := h.svc.UnassignTeacher(c.Request.Context(), c.Param("id"), c.Param("teacherId")); err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Teacher unassigned from subject successfully"})
}

func (h *Handler) EnrollStudent(c *gin.Context) {
	var req struct {
		StudentID string `json:"studentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Student ID is required"))
		return
	}
	e, err := h.svc.EnrollStudent(c.Request.Context(), c.Param("id"), req.StudentID)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) EnrollStudents(c *gin.Context) {
	var req struct {
		StudentIDs []string `json:"studentIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Student IDs array is required and must not be empty"))
		return
	}
	subj, err := h.svc.BulkEnroll(c.Request.Context(), c.Param("id"), req.StudentIDs)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     fmt.Sprintf("Successfully enrolled %d students", subj.StudentCount),
		"enrollments": subj.Students,
		"count":       subj.StudentCount,
	})
}

func (h *Handler) RemoveStudent(c *gin.Context) {
	if err := h.svc.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student removed from subject successfully"})
}

func (h *Handler) ToggleAttendance(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		apperr.Abort(c, h.log, apperr.Validation("Enabled field must be a boolean"))
		return
	}
	subj, err := h.svc.ToggleAttendance(c.Request.Context(), actor, c.Param("id"), *req.Enabled)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	state := "disabled"
	if *req.Enabled {
		state = "enabled"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Attendance %s for subject successfully", state),
		"subject": subj,
	})
}
