package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avdeev/authgate/internal/common"
	"github.com/avdeev/authgate/internal/server/models"
)

// response is the envelope every endpoint answers with.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// userResponse is the sanitized user projection. The password hash and the
// two-factor secret never leave the server.
type userResponse struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Role             models.Role `json:"role"`
	IsEmailVerified  bool        `json:"isEmailVerified"`
	TwoFactorEnabled bool        `json:"twoFactorEnabled"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		IsEmailVerified:  u.IsEmailVerified,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, response{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, response{Success: false, Message: message})
}

// workflowError maps a workflow failure to a status code and a safe message.
// Internal errors surface as a generic message only; the details were already
// logged where they happened.
func workflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorConflict):
		respondError(c, http.StatusConflict, "email already registered")
	case errors.Is(err, common.ErrEmailAlreadyVerified):
		respondError(c, http.StatusConflict, "email already verified")
	case errors.Is(err, common.ErrInvalidCredentials):
		respondError(c, http.StatusBadRequest, "invalid email or password")
	case errors.Is(err, common.ErrEmailNotVerified):
		respondError(c, http.StatusBadRequest, "email not verified")
	case errors.Is(err, common.ErrMissingToken):
		respondError(c, http.StatusBadRequest, "missing token")
	case errors.Is(err, common.ErrTokenExpired):
		respondError(c, http.StatusBadRequest, "token expired")
	case errors.Is(err, common.ErrInvalidToken):
		respondError(c, http.StatusBadRequest, "invalid token")
	case errors.Is(err, common.ErrorNotFound):
		respondError(c, http.StatusBadRequest, "user not found")
	default:
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}
