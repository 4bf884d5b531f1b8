package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/charlesng35/tradeflow/internal/middleware"
	"github.com/charlesng35/tradeflow/internal/permissions"
	"github.com/charlesng35/tradeflow/internal/services"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// SalesOrderHandler exposes sales order CRUD and transitions.
type SalesOrderHandler struct {
	svc *services.SalesOrderService
}

func NewSalesOrderHandler(svc *services.SalesOrderService) *SalesOrderHandler {
	return &SalesOrderHandler{svc: svc}
}

type salesOrderCreateRequest struct {
	Number   *string         `json:"number" validate:"omitempty,max=64"`
	Customer string          `json:"customer" validate:"required,max=255"`
	Amount   decimal.Decimal `json:"amount" validate:"gte=0"`
	Currency *string         `json:"currency" validate:"omitempty,len=3"`
	DueDate  *time.Time      `json:"due_date"`
	Notes    *string         `json:"notes"`
}

type salesOrderUpdateRequest struct {
	Number   *string          `json:"number" validate:"omitempty,max=64"`
	Customer *string          `json:"customer" validate:"omitempty,min=1,max=255"`
	Amount   *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	Currency *string          `json:"currency" validate:"omitempty,len=3"`
	DueDate  *time.Time       `json:"due_date"`
	Notes    *string          `json:"notes"`
}

// GET /api/sales-orders
func (h *SalesOrderHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	opts, ok := listOptions(c)
	if !ok {
		return
	}
	orders, total, err := h.svc.List(requestContext(c), actor, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondList(c, orders, opts, total)
}

// GET /api/sales-orders/:id
func (h *SalesOrderHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	order, err := h.svc.Get(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

// POST /api/sales-orders
func (h *SalesOrderHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req salesOrderCreateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	order, err := h.svc.Create(requestContext(c), actor, services.SalesOrderInput{
		Number:   req.Number,
		Customer: &req.Customer,
		Amount:   &req.Amount,
		Currency: req.Currency,
		DueDate:  req.DueDate,
		Notes:    req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, order)
}

// PATCH /api/sales-orders/:id
func (h *SalesOrderHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req salesOrderUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	order, err := h.svc.Update(requestContext(c), actor, c.Param("id"), services.SalesOrderInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

// DELETE /api/sales-orders/:id
func (h *SalesOrderHandler) Delete(c *gin.Context) {
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

// POST /api/sales-orders/:id/transitions/:action
func (h *SalesOrderHandler) Transition(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	order, err := h.svc.Transition(requestContext(c), actor, c.Param("id"), permissions.Action(c.Param(middleware.ActionParam)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}
