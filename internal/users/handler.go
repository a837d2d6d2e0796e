package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the public user routes on the /api/users group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/organizations", h.listOrganizations)
}

func (h *Handler) listOrganizations(c *gin.Context) {
	orgs, err := h.service.ListOrganizations(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list organizations", zap.Error(err))
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, orgs)
}
