package handler

import (
	"net/http"

	"deskhub_backend/internal/quotes/service"
	"deskhub_backend/internal/quotes/transport"
	"deskhub_backend/platform/httpkit"
	"deskhub_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// PublicHandler handles unauthenticated customer portal requests for quotes.
// Quotes are addressed by their number, which customers receive by email.
type PublicHandler struct {
	svc *service.Service
	val *validator.Validator
}

// NewPublicHandler creates a new public quotes handler.
func NewPublicHandler(svc *service.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

// RegisterRoutes registers the public quote routes (no auth middleware).
func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:number", h.View)
	rg.POST("/:number/accept", h.Accept)
	rg.POST("/:number/reject", h.Reject)
}

// View handles GET /api/v1/public/portal/quotes/:number?email=
func (h *PublicHandler) View(c *gin.Context) {
	number := c.Param("number")
	email := c.Query("email")
	if number == "" || email == "" {
		httpkit.Error(c, http.StatusBadRequest, "quote number and email are required", nil)
		return
	}

	result, err := h.svc.PortalView(c.Request.Context(), number, email)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Accept handles POST /api/v1/public/portal/quotes/:number/accept
func (h *PublicHandler) Accept(c *gin.Context) {
	h.decide(c, true)
}

// Reject handles POST /api/v1/public/portal/quotes/:number/reject
func (h *PublicHandler) Reject(c *gin.Context) {
	h.decide(c, false)
}

func (h *PublicHandler) decide(c *gin.Context, accept bool) {
	number := c.Param("number")
	if number == "" {
		httpkit.Error(c, http.StatusBadRequest, "quote number is required", nil)
		return
	}

	var req transport.PortalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.PortalDecide(c.Request.Context(), number, req.Email, accept, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
