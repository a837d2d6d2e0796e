package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(s *Service, logger *zap.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

// Response is the user profile plus token returned by register and login.
type Response struct {
	*users.User
	Token string `json:"token,omitempty"`
}

func (h *Handler) Register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, apperr.Validation("Invalid request body"))
		return
	}

	session, err := h.service.Register(c.Request.Context(), in)
	if err != nil {
		h.logFailure("Registration failed", err)
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{User: session.User, Token: session.Token})
}

func (h *Handler) Login(c *gin.Context) {
	var in LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, apperr.Validation("Invalid request body"))
		return
	}

	session, err := h.service.Login(c.Request.Context(), in)
	if err != nil {
		h.logFailure("Login failed", err)
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{User: session.User, Token: session.Token})
}

func (h *Handler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		apperr.Respond(c, apperr.Unauthorized("Not authorized"))
		return
	}
	c.JSON(http.StatusOK, Response{User: user})
}

func (h *Handler) logFailure(msg string, err error) {
	if ae, ok := apperr.As(err); ok && ae.Kind != apperr.KindInternal {
		h.logger.Debug(msg, zap.Error(err))
		return
	}
	h.logger.Error(msg, zap.Error(err))
}
