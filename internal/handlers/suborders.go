package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/charlesng35/tradeflow/internal/middleware"
	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
	"github.com/charlesng35/tradeflow/internal/services"
	apperrors "github.com/charlesng35/tradeflow/pkg/errors"
	"github.com/charlesng35/tradeflow/pkg/response"
)

// subOrderRequest is the union of writable fields across sub-order kinds.
// Fields that do not apply to a kind are ignored.
type subOrderRequest struct {
	Number     *string `json:"number" validate:"omitempty,max=64"`
	PipelineID *string `json:"pipeline_id" validate:"omitempty,uuid"`

	Supplier   *string          `json:"supplier" validate:"omitempty,max=255"`
	Amount     *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	ExpectedAt *time.Time       `json:"expected_at"`

	Product      *string    `json:"product" validate:"omitempty,max=255"`
	Quantity     *int       `json:"quantity" validate:"omitempty,gt=0"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`

	Carrier        *string    `json:"carrier" validate:"omitempty,max=128"`
	TrackingNumber *string    `json:"tracking_number" validate:"omitempty,max=128"`
	Address        *string    `json:"address"`
	ShipDate       *time.Time `json:"ship_date"`
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,max=500"`
	Status string   `json:"status" validate:"required"`
}

// subOrderApplier copies request fields onto an order. creating is true for
// new orders so kind specific required fields can be enforced.
type subOrderApplier[P any] func(order P, req subOrderRequest, creating bool) error

// SubOrderHandler serves one sub-order kind on top of the generic service.
type SubOrderHandler[T any, P services.SubOrderPtr[T]] struct {
	svc   *services.SubOrderService[T, P]
	apply subOrderApplier[P]
}

func NewPurchaseOrderHandler(svc *services.PurchaseOrderService) *SubOrderHandler[models.PurchaseOrder, *models.PurchaseOrder] {
	return &SubOrderHandler[models.PurchaseOrder, *models.PurchaseOrder]{svc: svc, apply: applyPurchaseOrder}
}

func NewProductionOrderHandler(svc *services.ProductionOrderService) *SubOrderHandler[models.ProductionOrder, *models.ProductionOrder] {
	return &SubOrderHandler[models.ProductionOrder, *models.ProductionOrder]{svc: svc, apply: applyProductionOrder}
}

func NewOutboundOrderHandler(svc *services.OutboundOrderService) *SubOrderHandler[models.OutboundOrder, *models.OutboundOrder] {
	return &SubOrderHandler[models.OutboundOrder, *models.OutboundOrder]{svc: svc, apply: applyOutboundOrder}
}

// Resource reports the permission resource served by the handler.
func (h *SubOrderHandler[T, P]) Resource() permissions.ResourceType {
	return h.svc.Resource()
}

// GET /api/<kind>
func (h *SubOrderHandler[T, P]) List(c *gin.Context) {
	h.list(c, "")
}

// GET /api/pipelines/:id/<kind>
func (h *SubOrderHandler[T, P]) ListForPipeline(c *gin.Context) {
	h.list(c, c.Param("id"))
}

func (h *SubOrderHandler[T, P]) list(c *gin.Context, pipelineID string) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	opts, ok := listOptions(c)
	if !ok {
		return
	}
	if pipelineID != "" {
		opts.Pipeline = pipelineID
	}
	orders, total, err := h.svc.List(requestContext(c), actor, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondList(c, orders, opts, total)
}

// GET /api/<kind>/:id
func (h *SubOrderHandler[T, P]) Get(c *gin.Context) {
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

// POST /api/<kind>
func (h *SubOrderHandler[T, P]) Create(c *gin.Context) {
	h.create(c, nil)
}

// POST /api/pipelines/:id/<kind>
func (h *SubOrderHandler[T, P]) CreateForPipeline(c *gin.Context) {
	pipelineID := c.Param("id")
	h.create(c, &pipelineID)
}

func (h *SubOrderHandler[T, P]) create(c *gin.Context, pipelineID *string) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req subOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if pipelineID == nil {
		pipelineID = req.PipelineID
	}
	order, err := h.svc.Create(requestContext(c), actor, pipelineID, func(order P) error {
		return h.apply(order, req, true)
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, order)
}

// PATCH /api/<kind>/:id
func (h *SubOrderHandler[T, P]) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req subOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	order, err := h.svc.Update(requestContext(c), actor, c.Param("id"), req.PipelineID, func(order P) error {
		return h.apply(order, req, false)
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

// DELETE /api/<kind>/:id
func (h *SubOrderHandler[T, P]) Delete(c *gin.Context) {
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

// POST /api/<kind>/:id/transitions/:action
func (h *SubOrderHandler[T, P]) Transition(c *gin.Context) {
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

// POST /api/<kind>/bulk-status
func (h *SubOrderHandler[T, P]) BulkStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req bulkStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	status := models.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	rows, err := h.svc.BulkUpdateStatus(requestContext(c), actor, req.IDs, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": rows, "status": status})
}

func applyPurchaseOrder(order *models.PurchaseOrder, req subOrderRequest, creating bool) error {
	if creating && blank(req.Supplier) {
		return apperrors.NewValidation(map[string]string{"supplier": "supplier is required"})
	}
	if req.Number != nil {
		order.Number = strings.TrimSpace(*req.Number)
	}
	if req.Supplier != nil {
		order.Supplier = strings.TrimSpace(*req.Supplier)
	}
	if req.Amount != nil {
		order.Amount = *req.Amount
	}
	if req.ExpectedAt != nil {
		order.ExpectedAt = req.ExpectedAt
	}
	return nil
}

func applyProductionOrder(order *models.ProductionOrder, req subOrderRequest, creating bool) error {
	if creating {
		fields := map[string]string{}
		if blank(req.Product) {
			fields["product"] = "product is required"
		}
		if req.Quantity == nil {
			fields["quantity"] = "quantity is required"
		}
		if len(fields) > 0 {
			return apperrors.NewValidation(fields)
		}
	}
	if req.Number != nil {
		order.Number = strings.TrimSpace(*req.Number)
	}
	if req.Product != nil {
		order.Product = strings.TrimSpace(*req.Product)
	}
	if req.Quantity != nil {
		order.Quantity = *req.Quantity
	}
	if req.PlannedStart != nil {
		order.PlannedStart = req.PlannedStart
	}
	if req.PlannedEnd != nil {
		order.PlannedEnd = req.PlannedEnd
	}
	if order.PlannedStart != nil && order.PlannedEnd != nil && order.PlannedEnd.Before(*order.PlannedStart) {
		return apperrors.NewValidation(map[string]string{"planned_end": "planned end must not be before planned start"})
	}
	return nil
}

func applyOutboundOrder(order *models.OutboundOrder, req subOrderRequest, _ bool) error {
	if req.Number != nil {
		order.Number = strings.TrimSpace(*req.Number)
	}
	if req.Carrier != nil {
		order.Carrier = strings.TrimSpace(*req.Carrier)
	}
	if req.TrackingNumber != nil {
		order.TrackingNumber = strings.TrimSpace(*req.TrackingNumber)
	}
	if req.Address != nil {
		order.Address = strings.TrimSpace(*req.Address)
	}
	if req.ShipDate != nil {
		order.ShipDate = req.ShipDate
	}
	return nil
}

func blank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}
