package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/model"
)

// Resource names a gated API surface.
type Resource string

// Op names an operation on a resource.
type Op string

const (
	ResourceUsers      Resource = "users"
	ResourceSubjects   Resource = "subjects"
	ResourceAttendance Resource = "attendance"
)

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"

	// subjects
	OpAssignTeacher    Op = "assign-teacher"
	OpEnrollStudent    Op = "enroll-student"
	OpToggleAttendance Op = "toggle-attendance"
	OpTeacherView      Op = "teacher-view"
	OpStudentView      Op = "student-view"

	// attendance
	OpRead     Op = "read"
	OpBulk     Op = "bulk"
	OpSelfMark Op = "self-mark"
)

// policy is the single source of role gating: (resource, operation) → the
// roles allowed through. Checks that depend on resource linkage (an assigned
// teacher, the actor's own record) live in the services as a second stage;
// the table only answers the role question.
var policy = map[Resource]map[Op][]model.Role{
	ResourceUsers: {
		OpList:   {model.RoleSuperAdmin, model.RoleAdmin},
		OpCreate: {model.RoleSuperAdmin, model.RoleAdmin},
		OpUpdate: {model.RoleSuperAdmin, model.RoleAdmin},
		OpDelete: {model.RoleSuperAdmin, model.RoleAdmin},
	},
	ResourceSubjects: {
		OpList:             {model.RoleSuperAdmin, model.RoleAdmin},
		OpCreate:           {model.RoleSuperAdmin, model.RoleAdmin},
		OpAssignTeacher:    {model.RoleSuperAdmin, model.RoleAdmin},
		OpEnrollStudent:    {model.RoleSuperAdmin, model.RoleAdmin},
		OpToggleAttendance: {model.RoleSuperAdmin, model.RoleAdmin, model.RoleTeacher},
		OpTeacherView:      {model.RoleTeacher},
		OpStudentView:      {model.RoleStudent},
	},
	ResourceAttendance: {
		OpRead:     {model.RoleSuperAdmin, model.RoleAdmin, model.RoleTeacher, model.RoleStudent},
		OpBulk:     {model.RoleTeacher},
		OpSelfMark: {model.RoleStudent},
		OpUpdate:   {model.RoleTeacher},
		OpDelete:   {model.RoleTeacher},
	},
}

// Allow reports whether the actor's role may perform op on res.
func Allow(actor Actor, res Resource, op Op) bool {
	ops, ok := policy[res]
	if !ok {
		return false
	}
	for _, r := range ops[op] {
		if actor.Role == r {
			return true
		}
	}
	return false
}

// Require returns middleware gating a route on the policy table. Denials are
// a flat "Access denied" regardless of cause.
func Require(res Resource, op Op) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if !Allow(actor, res, op) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}
