package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

// Context keys set by the authentication middleware.
const (
	CtxUserID         = "auth_user_id"
	CtxRole           = "auth_role"
	CtxDepartmentCode = "auth_department_code"
	CtxStudentID      = "auth_student_id"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWTAuth validates the bearer token and stores the caller's identity
// on the request context.
func JWTAuth(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWith(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing bearer token"))
			return
		}
		claims, err := auth.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortWith(c, appErrors.FromError(err))
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxDepartmentCode, claims.DepartmentCode)
		if claims.StudentID != "" {
			c.Set(CtxStudentID, claims.StudentID)
		}
		c.Next()
	}
}

// RequireRoles allows only callers holding one of the given roles.
// Super admins always pass.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		role, ok := RoleFrom(c)
		if !ok {
			abortWith(c, appErrors.ErrUnauthorized)
			return
		}
		if role == models.RoleSuperAdmin {
			c.Next()
			return
		}
		if _, ok := allowed[role]; !ok {
			abortWith(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RoleFrom returns the authenticated caller's role.
func RoleFrom(c *gin.Context) (models.UserRole, bool) {
	value, exists := c.Get(CtxRole)
	if !exists {
		return "", false
	}
	role, ok := value.(models.UserRole)
	return role, ok
}

// DepartmentFrom returns the authenticated caller's department code.
func DepartmentFrom(c *gin.Context) (string, bool) {
	value, exists := c.Get(CtxDepartmentCode)
	if !exists {
		return "", false
	}
	code, ok := value.(string)
	return code, ok
}

// StudentIDFrom returns the linked student record for student callers.
func StudentIDFrom(c *gin.Context) (string, bool) {
	value, exists := c.Get(CtxStudentID)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok
}

// UserIDFrom returns the authenticated account id.
func UserIDFrom(c *gin.Context) (string, bool) {
	value, exists := c.Get(CtxUserID)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok
}

func abortWith(c *gin.Context, err *appErrors.Error) {
	status := http.StatusUnauthorized
	if err != nil && err.Status != 0 {
		status = err.Status
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": err.Code, "message": err.Message},
	})
}
