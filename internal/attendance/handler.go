package attendance

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classtrack/internal/apperr"
	"classtrack/internal/auth"
	"classtrack/internal/model"
)

// Handler exposes the attendance routes.
type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the protected attendance routes on api.
func (h *Handler) RegisterRoutes(api gin.IRoutes) {
	read := auth.Require(auth.ResourceAttendance, auth.OpRead)
	api.GET("/attendance", read, h.List)
	api.GET("/attendance/range", read, h.Range)
	api.GET("/attendance/stats", read, h.Stats)
	api.GET("/attendance/student/:id", read, h.ByStudent)
	api.GET("/attendance/student/:id/subject/:subjectId", read, h.ByStudentSubject)
	api.GET("/summary", read, h.Summary)
	api.POST("/attendance/bulk", auth.Require(auth.ResourceAttendance, auth.OpBulk), h.Bulk)
	api.POST("/attendance/student", auth.Require(auth.ResourceAttendance, auth.OpSelfMark), h.SelfMark)
	api.PUT("/attendance/:id", auth.Require(auth.ResourceAttendance, auth.OpUpdate), h.Update)
	api.DELETE("/attendance/:id", auth.Require(auth.ResourceAttendance, auth.OpDelete), h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	records, err := h.svc.List(c.Request.Context(), Query{
		Date:      c.Query("date"),
		StudentID: c.Query("studentId"),
		SubjectID: c.Query("subject"),
	})
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) Range(c *gin.Context) {
	records, err := h.svc.ListRange(c.Request.Context(),
		c.Query("startDate"), c.Query("endDate"), c.Query("subjectId"))
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), StatsQuery{
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		SubjectID: c.Query("subjectId"),
	})
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ByStudent(c *gin.Context) {
	records, err := h.svc.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) ByStudentSubject(c *gin.Context) {
	records, err := h.svc.ListByStudentSubject(c.Request.Context(), c.Param("id"), c.Param("subjectId"))
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) Bulk(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var in BulkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Date, subject and attendance data are required"))
		return
	}
	if err := h.svc.BulkCreate(c.Request.Context(), actor, in); err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance records created successfully"})
}

func (h *Handler) SelfMark(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var in SelfMarkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Student, subject, date and status are required"))
		return
	}
	rec, err := h.svc.SelfMark(c.Request.Context(), actor, in)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Update(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var req struct {
		Status model.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Invalid status. Must be present, absent, or late"))
		return
	}
	rec, err := h.svc.Update(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	if err := h.svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance record deleted successfully"})
}
