package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avdeev/authgate/internal/common"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := s.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		workflowError(c, err)
		return
	}

	respond(c, http.StatusCreated, "registration successful, please verify your email", newUserResponse(user))
}

func (s *Server) verifyEmail(c *gin.Context) {
	user, err := s.users.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		workflowError(c, err)
		return
	}

	respond(c, http.StatusOK, "email verified", newUserResponse(user))
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	user, pair, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		workflowError(c, err)
		return
	}

	s.setRefreshCookie(c, pair.RefreshToken)

	respond(c, http.StatusOK, "login successful", gin.H{
		"user":        newUserResponse(user),
		"accessToken": pair.AccessToken,
	})
}

// refresh rotates the token pair carried by the refresh cookie. Any token
// failure is a 401 here: the caller holds no proof of identity worth a
// more specific answer.
func (s *Server) refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshTokenCookie)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "missing refresh token")
		return
	}

	user, pair, err := s.users.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorInternal) {
			respondError(c, http.StatusInternalServerError, "internal server error")
			return
		}
		respondError(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.setRefreshCookie(c, pair.RefreshToken)

	respond(c, http.StatusOK, "token refreshed", gin.H{
		"user":        newUserResponse(user),
		"accessToken": pair.AccessToken,
	})
}

func (s *Server) me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	respond(c, http.StatusOK, "ok", newUserResponse(user))
}
