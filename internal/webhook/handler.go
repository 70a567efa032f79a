package webhook

import (
	"net/http"

	"deskhub_backend/platform/httpkit"
	"deskhub_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	timeFormat        = "2006-01-02T15:04:05Z"
)

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
	repo    *Repository
	val     *validator.Validator
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{service: service, repo: repo, val: val}
}

// ---- Public intake (API-key authenticated) ----

// FormSubmissionRequest is the body for an inbound website form POST.
type FormSubmissionRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"max=200"`
	Subject string `json:"subject" validate:"max=300"`
	Message string `json:"message" validate:"required,min=1,max=10000"`
}

// ChatMessageRequest is the body for an inbound chat widget message.
type ChatMessageRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"max=200"`
	Message string `json:"message" validate:"required,min=1,max=10000"`
}

// WhatsAppMessageRequest is the body the WhatsApp gateway posts for an
// inbound message.
type WhatsAppMessageRequest struct {
	Phone   string `json:"phone" validate:"required,min=5,max=20"`
	Name    string `json:"name" validate:"max=200"`
	Message string `json:"message" validate:"required,min=1,max=10000"`
}

// IntakeResponse is returned for accepted intake submissions.
type IntakeResponse struct {
	TicketID      uuid.UUID `json:"ticketId"`
	ClientID      uuid.UUID `json:"clientId"`
	TicketCreated bool      `json:"ticketCreated"`
}

// HandleFormSubmission processes an inbound form submission.
// POST /api/v1/webhook/forms
func (h *Handler) HandleFormSubmission(c *gin.Context) {
	var req FormSubmissionRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.ProcessFormSubmission(c.Request.Context(), req.Email, req.Name, req.Subject, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, toIntakeResponse(result))
}

// HandleChatMessage processes an inbound chat widget message.
// POST /api/v1/webhook/chat
func (h *Handler) HandleChatMessage(c *gin.Context) {
	var req ChatMessageRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.ProcessChatMessage(c.Request.Context(), req.Email, req.Name, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.TicketCreated {
		status = http.StatusCreated
	}
	c.JSON(status, toIntakeResponse(result))
}

// HandleWhatsAppMessage processes an inbound WhatsApp gateway callback.
// POST /api/v1/webhook/whatsapp
func (h *Handler) HandleWhatsAppMessage(c *gin.Context) {
	var req WhatsAppMessageRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.ProcessWhatsAppMessage(c.Request.Context(), req.Phone, req.Name, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.TicketCreated {
		status = http.StatusCreated
	}
	c.JSON(status, toIntakeResponse(result))
}

func toIntakeResponse(result *IntakeResult) IntakeResponse {
	return IntakeResponse{
		TicketID:      result.TicketID,
		ClientID:      result.ClientID,
		TicketCreated: result.TicketCreated,
	}
}

// ---- Admin API key management (JWT authenticated, admin role) ----

// CreateAPIKeyRequest is the request body for creating a new API key.
type CreateAPIKeyRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=100"`
	AllowedDomains []string `json:"allowedDomains" validate:"max=20,dive,max=200"`
}

// APIKeyResponse is returned when listing or creating API keys.
type APIKeyResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	KeyPrefix      string    `json:"keyPrefix"`
	AllowedDomains []string  `json:"allowedDomains"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      string    `json:"createdAt"`
}

// CreateAPIKeyResponse includes the plaintext key (shown only once).
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"` // plaintext, shown only once
}

// HandleCreateAPIKey creates a new webhook API key.
// POST /api/v1/admin/webhook/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate API key", nil)
		return
	}

	domains := req.AllowedDomains
	if domains == nil {
		domains = []string{}
	}

	key, err := h.repo.Create(c.Request.Context(), req.Name, hash, prefix, domains)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKeyResponse: toAPIKeyResponse(key),
		Key:            plaintext,
	})
}

// HandleListAPIKeys lists all webhook API keys.
// GET /api/v1/admin/webhook/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	keys, err := h.repo.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]APIKeyResponse, len(keys))
	for i, k := range keys {
		result[i] = toAPIKeyResponse(k)
	}

	httpkit.OK(c, result)
}

// HandleRevokeAPIKey deactivates a webhook API key.
// DELETE /api/v1/admin/webhook/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), keyID); err != nil {
		if err == ErrAPIKeyNotFound {
			httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}

func toAPIKeyResponse(key APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:             key.ID,
		Name:           key.Name,
		KeyPrefix:      key.KeyPrefix,
		AllowedDomains: key.AllowedDomains,
		IsActive:       key.IsActive,
		CreatedAt:      key.CreatedAt.UTC().Format(timeFormat),
	}
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}
