package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/middleware"
	"github.com/certilink/certilink-api/internal/service"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
	"github.com/certilink/certilink-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate a principal
// @Description Authenticate by email, password and claimed role
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Verify godoc
// @Summary Verify the current token
// @Description Returns the principal bound to the presented bearer token
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info := dto.PrincipalInfo{
		ID:     claims.PrincipalID,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
		Status: claims.InstitutionStatus,
	}
	response.JSON(c, http.StatusOK, info)
}

// Logout godoc
// @Summary Close the current session
// @Description Deletes the session row backing the presented token
// @Tags Authentication
// @Produce json
// @Success 204 "No Content"
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	token := c.GetString(middleware.ContextTokenKey)

	if err := h.service.Logout(c.Request.Context(), token, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
