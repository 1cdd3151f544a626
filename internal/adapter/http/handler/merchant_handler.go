package handler

import (
	"payrelay/internal/adapter/http/dto"
	"payrelay/internal/core/domain"
	"payrelay/internal/core/ports"
	"payrelay/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets clients pass the idempotency key outside the body.
const HeaderIdempotencyKey = "X-Idempotency-Key"

// MerchantHandler handles the merchant gateway routes.
type MerchantHandler struct {
	svc ports.MerchantService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(svc ports.MerchantService) *MerchantHandler {
	return &MerchantHandler{svc: svc}
}

// Payments handles POST /merchant/payments.
func (h *MerchantHandler) Payments(c *gin.Context) {
	h.forward(c, domain.OperationSale)
}

// Refunds handles POST /merchant/refunds.
func (h *MerchantHandler) Refunds(c *gin.Context) {
	h.forward(c, domain.OperationRefund)
}

// Void handles POST /merchant/void.
func (h *MerchantHandler) Void(c *gin.Context) {
	h.forward(c, domain.OperationVoid)
}

func (h *MerchantHandler) forward(c *gin.Context, op domain.Operation) {
	req, err := dto.DecodeTransaction(c.Request.Body, domain.MerchantRequiredFields(op))
	if err != nil {
		response.Error(c, err)
		return
	}

	resp, err := h.svc.Forward(c.Request.Context(), op, req, c.GetHeader(HeaderIdempotencyKey))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(resp.StatusCode, "application/json; charset=utf-8", resp.Body)
}

// Callback handles POST /merchant/callback.
func (h *MerchantHandler) Callback(c *gin.Context) {
	payload, err := dto.DecodePayload(c.Request.Body)
	if err != nil {
		response.Error(c, err)
		return
	}

	if _, err := h.svc.HandleCallback(c.Request.Context(), payload); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.CallbackAck{Received: true})
}

// Status handles GET /merchant/status/:merchantReference.
func (h *MerchantHandler) Status(c *gin.Context) {
	record, err := h.svc.GetStatus(c.Request.Context(), c.Param("merchantReference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}
