package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// PaymentHandler exposes payments within the categories the caller's role may see.
type PaymentHandler struct {
	svc *services.PaymentService
}

func NewPaymentHandler(svc *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

type paymentRequest struct {
	Category        *models.PaymentCategory `json:"category"`
	Amount          *decimal.Decimal        `json:"amount" validate:"omitempty,gte=0"`
	Currency        *string                 `json:"currency" validate:"omitempty,len=3"`
	Reference       *string                 `json:"reference" validate:"omitempty,max=128"`
	SalesOrderID    *string                 `json:"sales_order_id" validate:"omitempty,uuid"`
	PurchaseOrderID *string                 `json:"purchase_order_id" validate:"omitempty,uuid"`
	PaidAt          *time.Time              `json:"paid_at"`
	Status          *models.Status          `json:"status"`
}

// GET /api/payments
func (h *PaymentHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	opts, ok := listOptions(c)
	if !ok {
		return
	}
	payments, total, err := h.svc.List(requestContext(c), actor, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondList(c, payments, opts, total)
}

// GET /api/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	payment, err := h.svc.Get(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, payment)
}

// POST /api/payments
func (h *PaymentHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req paymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	payment, err := h.svc.Create(requestContext(c), actor, services.PaymentInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, payment)
}

// PATCH /api/payments/:id
func (h *PaymentHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req paymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	payment, err := h.svc.Update(requestContext(c), actor, c.Param("id"), services.PaymentInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, payment)
}

// DELETE /api/payments/:id
func (h *PaymentHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
