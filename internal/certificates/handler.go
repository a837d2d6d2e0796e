package certificates

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the download route on the /api group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	ipfs := rg.Group("/ipfs")
	{
		ipfs.GET("/download/:hash", h.Download)
	}
}

func (h *Handler) Download(c *gin.Context) {
	hash := c.Param("hash")
	reader, err := h.service.Download(c.Request.Context(), hash)
	if err != nil {
		if apperr.IsKind(err, apperr.KindExternal) {
			h.logger.Error("Certificate download failed", zap.String("cid", hash), zap.Error(err))
		}
		apperr.Respond(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, map[string]string{
		"Content-Disposition": `attachment; filename="certificate-` + hash + `.pdf"`,
	})
}
