package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classtrack/internal/apperr"
	"classtrack/internal/auth"
)

// Handler exposes the account routes.
type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the protected account routes on api.
func (h *Handler) RegisterRoutes(api gin.IRoutes) {
	api.GET("/users", auth.Require(auth.ResourceUsers, auth.OpList), h.List)
	api.POST("/users", auth.Require(auth.ResourceUsers, auth.OpCreate), h.Create)
	api.GET("/users/me", h.Me)
	api.PUT("/users/email", h.UpdateEmail)
	api.PUT("/users/password", h.UpdatePassword)
	api.PUT("/users/:id", auth.Require(auth.ResourceUsers, auth.OpUpdate), h.Update)
	api.DELETE("/users/:id", auth.Require(auth.ResourceUsers, auth.OpDelete), h.Delete)
	api.GET("/students", auth.Require(auth.ResourceUsers, auth.OpList), h.Students)
}

// Login handles POST /login. Unprotected.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Username and password are required"))
		return
	}
	token, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) List(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) Students(c *gin.Context) {
	students, err := h.svc.Students(c.Request.Context())
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) Me(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	u, err := h.svc.Me(c.Request.Context(), actor.ID)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Name and role are required"))
		return
	}
	u, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) Update(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Name and role are required"))
		return
	}
	u, err := h.svc.Update(c.Request.Context(), actor, c.Param("id"), in)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	if err := h.svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *Handler) UpdateEmail(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Invalid email format"))
		return
	}
	u, err := h.svc.UpdateEmail(c.Request.Context(), actor.ID, req.Email)
	if err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, h.log, apperr.Validation("Current password and new password are required"))
		return
	}
	if err := h.svc.UpdatePassword(c.Request.Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		apperr.Abort(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
