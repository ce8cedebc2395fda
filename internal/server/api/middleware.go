package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avdeev/authgate/internal/common"
	"github.com/avdeev/authgate/internal/server/models"
)

const userContextKey = "authgate/user"

// requireAuth resolves the bearer access token to a user and stores it in
// the request context. Revoked, expired, and malformed tokens all answer 401.
func (s *Server) requireAuth(c *gin.Context) {

	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		respondError(c, http.StatusUnauthorized, "missing access token")
		return
	}

	user, err := s.users.Authenticate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, common.ErrorInternal) {
			respondError(c, http.StatusInternalServerError, "internal server error")
			return
		}
		respondError(c, http.StatusUnauthorized, "invalid access token")
		return
	}

	c.Set(userContextKey, user)
	c.Next()
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
