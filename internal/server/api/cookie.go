package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	refreshTokenCookie = "refreshToken"

	// refreshCookiePath keeps the cookie off every request except the
	// auth endpoints that actually consume it.
	refreshCookiePath = "/auth"
)

func (s *Server) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshTokenCookie, token, int(s.refreshTokenTTL.Seconds()), refreshCookiePath, "", s.secureCookies, true)
}
