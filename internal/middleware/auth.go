package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"volunteerhub/internal/model"
	"volunteerhub/internal/pkg"
	"volunteerhub/internal/policy"
	"volunteerhub/internal/repository/mysql"
)

const (
	ContextUserIDKey = "user_id"
	ContextUserKey   = "user"

	refreshHeader    = "X-Refresh-Token"
	newAccessHeader  = "X-New-Access-Token"
	newRefreshHeader = "X-New-Refresh-Token"
)

// SessionChecker is the middleware's view of the single-session store.
type SessionChecker interface {
	GetUserToken(userID uint64) (string, error)
	ExtendUserToken(userID uint64) error
	AddUserToken(userID uint64, token string) error
}

// Auth authenticates the request and resolves its identity against the
// current users table. An expired access token is silently rotated when the
// client supplied a refresh token; the new pair rides back on response
// headers.
func Auth(db *gorm.DB, sessions SessionChecker) gin.HandlerFunc {
	users := &mysql.UserRepository{DB: db}

	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		claims, err := pkg.ParseAccess(tokenStr)
		if errors.Is(err, pkg.ErrTokenExpired) {
			claims, tokenStr, err = rotate(c, sessions)
		}
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		if sessions != nil {
			current, err := sessions.GetUserToken(claims.UserID)
			if err != nil || current != tokenStr {
				abortUnauthorized(c, "session is no longer active")
				return
			}
			_ = sessions.ExtendUserToken(claims.UserID)
		}

		// Tokens outlive accounts. A well-formed credential for a deleted
		// row is not an authentication failure: the identity is gone.
		user, err := users.FindByID(claims.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": gin.H{
				"code": "NOT_FOUND", "message": "account no longer exists",
			}})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": gin.H{
				"code": "DEPENDENCY_FAILURE", "message": "failed to resolve identity",
			}})
			return
		}

		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func rotate(c *gin.Context, sessions SessionChecker) (*pkg.Claims, string, error) {
	refresh := c.GetHeader(refreshHeader)
	if refresh == "" {
		return nil, "", pkg.ErrTokenExpired
	}
	pair, err := pkg.Refresh(refresh)
	if err != nil {
		return nil, "", err
	}
	claims, err := pkg.ParseAccess(pair.AccessToken)
	if err != nil {
		return nil, "", err
	}
	if sessions != nil {
		_ = sessions.AddUserToken(claims.UserID, pair.AccessToken)
	}
	c.Header(newAccessHeader, pair.AccessToken)
	c.Header(newRefreshHeader, pair.RefreshToken)
	return claims, pair.AccessToken, nil
}

// RequireRoles guards a route group with the capability table's role set.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthorized(c, "not authenticated")
			return
		}
		if !policy.Allowed(user.Role, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{
				"code": "FORBIDDEN", "message": "insufficient role",
			}})
			return
		}
		c.Next()
	}
}

// RequireCapability guards a route with the capability table's entry for
// one operation; unknown operations deny everyone.
func RequireCapability(op policy.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthorized(c, "not authenticated")
			return
		}
		if !policy.Can(user.Role, op) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{
				"code": "FORBIDDEN", "message": "insufficient role",
			}})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the identity resolved by Auth, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{
		"code": "UNAUTHENTICATED", "message": msg,
	}})
}
