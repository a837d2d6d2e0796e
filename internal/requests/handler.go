package requests

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cert-chain/credential-portal/credential-portal-backend/internal/apperr"
	"cert-chain/credential-portal/credential-portal-backend/internal/auth"
	"cert-chain/credential-portal/credential-portal-backend/internal/users"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the request workflow on the /api/users group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	student := rg.Group("", requireAuth, auth.RequireRole(users.RoleStudent))
	{
		student.POST("/request-certificate", h.CreateRequest)
		student.GET("/student-requests", h.StudentRequests)
		student.GET("/received-certificates", h.ReceivedCertificates)
	}

	org := rg.Group("", requireAuth, auth.RequireRole(users.RoleOrganization))
	{
		org.GET("/organization-requests", h.OrganizationRequests)
		org.GET("/organization-requests/export", h.ExportOrganizationRequests)
		org.PUT("/request/:id/status", h.UpdateStatus)
		org.POST("/request/:id/issue", h.Issue)
	}
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, apperr.Validation("Invalid request body"))
		return
	}

	user, _ := auth.CurrentUser(c)
	req, err := h.service.CreateRequest(c.Request.Context(), user, in)
	if err != nil {
		h.fail(c, "Failed to create certificate request", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Certificate request submitted successfully",
		"request": req,
	})
}

func (h *Handler) StudentRequests(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	list, err := h.service.ListStudentRequests(c.Request.Context(), user)
	if err != nil {
		h.fail(c, "Failed to list student requests", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ReceivedCertificates(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	list, err := h.service.ListReceivedCertificates(c.Request.Context(), user)
	if err != nil {
		h.fail(c, "Failed to list received certificates", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) OrganizationRequests(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	list, err := h.service.ListOrganizationRequests(c.Request.Context(), user)
	if err != nil {
		h.fail(c, "Failed to list organization requests", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ExportOrganizationRequests(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	export, err := h.service.ExportOrganizationRequests(c.Request.Context(), user, ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		h.fail(c, "Failed to export organization requests", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var in StatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, apperr.Validation("Invalid request body"))
		return
	}

	user, _ := auth.CurrentUser(c)
	req, err := h.service.UpdateRequestStatus(c.Request.Context(), user, c.Param("id"), in)
	if err != nil {
		h.fail(c, "Failed to update request status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Request " + string(req.Status),
		"request": req,
	})
}

func (h *Handler) Issue(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	req, err := h.service.IssueCertificate(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to issue certificate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Certificate issued successfully",
		"request": req,
	})
}

// fail logs server-side failures at Error and client mistakes at Debug.
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	if ae, ok := apperr.As(err); ok && ae.Kind != apperr.KindInternal && ae.Kind != apperr.KindExternal {
		h.logger.Debug(msg, zap.Error(err))
	} else {
		h.logger.Error(msg, zap.Error(err))
	}
	apperr.Respond(c, err)
}
