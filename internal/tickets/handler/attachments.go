package handler

import (
	"net/http"

	"deskhub_backend/internal/tickets/transport"
	"deskhub_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PresignAttachment issues a presigned upload URL for a ticket attachment.
func (h *Handler) PresignAttachment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTicketID, nil)
		return
	}

	var req transport.PresignAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.PresignAttachment(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// RecordAttachment records the metadata row after the client uploaded the
// file to the presigned URL.
func (h *Handler) RecordAttachment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTicketID, nil)
		return
	}

	var req transport.RecordAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	agentID := identity.AgentID()

	result, err := h.svc.RecordAttachment(c.Request.Context(), id, &agentID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

// GetDownloadURL issues a short-lived download link for an attachment.
func (h *Handler) GetDownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTicketID, nil)
		return
	}

	attachmentID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid attachment ID", nil)
		return
	}

	result, err := h.svc.AttachmentDownloadURL(c.Request.Context(), id, attachmentID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
