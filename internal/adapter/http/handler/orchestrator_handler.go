package handler

import (
	"payrelay/internal/adapter/http/dto"
	"payrelay/internal/core/domain"
	"payrelay/internal/core/ports"
	"payrelay/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrchestratorHandler handles the orchestrator's payment routes.
type OrchestratorHandler struct {
	svc ports.OrchestratorService
}

// NewOrchestratorHandler creates a new OrchestratorHandler.
func NewOrchestratorHandler(svc ports.OrchestratorService) *OrchestratorHandler {
	return &OrchestratorHandler{svc: svc}
}

// Sale handles POST /orchestrator/sale.
func (h *OrchestratorHandler) Sale(c *gin.Context) {
	h.execute(c, domain.OperationSale)
}

// Refund handles POST /orchestrator/refund.
func (h *OrchestratorHandler) Refund(c *gin.Context) {
	h.execute(c, domain.OperationRefund)
}

// Void handles POST /orchestrator/void.
func (h *OrchestratorHandler) Void(c *gin.Context) {
	h.execute(c, domain.OperationVoid)
}

func (h *OrchestratorHandler) execute(c *gin.Context, op domain.Operation) {
	req, err := dto.DecodeTransaction(c.Request.Body, domain.RequiredFields(op))
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.svc.Execute(c.Request.Context(), op, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if out.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	response.JSON(c, out.HTTPStatus, out.Result)
}
