package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/certilink/certilink-api/internal/models"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
	"github.com/certilink/certilink-api/pkg/response"
)

// RequireRoles allows only the listed roles through.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, permitted := allowed[claims.Role]; !permitted {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireInstitutionStatus gates institution principals on their account
// status. Other roles pass through untouched so the guard can sit on mixed
// routes.
func RequireInstitutionStatus(statuses ...models.InstitutionStatus) gin.HandlerFunc {
	allowed := make(map[models.InstitutionStatus]struct{}, len(statuses))
	for _, s := range statuses {
		allowed[s] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.Role != models.RoleInstitution {
			c.Next()
			return
		}
		if _, permitted := allowed[claims.InstitutionStatus]; !permitted {
			blocked := appErrors.Clone(appErrors.ErrForbidden, "institution account is not active")
			response.Error(c, appErrors.WithDetails(blocked, map[string]string{"status": string(claims.InstitutionStatus)}))
			c.Abort()
			return
		}
		c.Next()
	}
}
