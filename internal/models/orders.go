package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesOrder is a confirmed or draft customer order; confirming it opens a pipeline.
type SalesOrder struct {
	TenantModel

	Number   string          `gorm:"size:64;not null;index" json:"number"`
	Customer string          `gorm:"size:255;not null" json:"customer"`
	Amount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency string          `gorm:"size:3;not null;default:USD" json:"currency"`
	DueDate  *time.Time      `gorm:"index" json:"due_date"`
	Status   Status          `gorm:"size:32;not null;index" json:"status"`
	Notes    string          `json:"notes"`
}

// PurchaseOrder procures materials for a pipeline.
type PurchaseOrder struct {
	TenantModel

	PipelineID *string         `gorm:"type:uuid;index" json:"pipeline_id"`
	Number     string          `gorm:"size:64;not null;index" json:"number"`
	Supplier   string          `gorm:"size:255;not null" json:"supplier"`
	Amount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	ExpectedAt *time.Time      `gorm:"index" json:"expected_at"`
	Status     Status          `gorm:"size:32;not null;index" json:"status"`
}

func (o *PurchaseOrder) Kind() OrderKind { return KindPurchaseOrder }
func (o *PurchaseOrder) CurrentStatus() Status { return o.Status }
func (o *PurchaseOrder) SetStatus(s Status) { o.Status = s }
func (o *PurchaseOrder) PipelineRef() *string { return o.PipelineID }

// ProductionOrder schedules manufacturing work for a pipeline.
type ProductionOrder struct {
	TenantModel

	PipelineID   *string    `gorm:"type:uuid;index" json:"pipeline_id"`
	Number       string     `gorm:"size:64;not null;index" json:"number"`
	Product      string     `gorm:"size:255;not null" json:"product"`
	Quantity     int        `gorm:"not null" json:"quantity"`
	PlannedStart *time.Time `gorm:"index" json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
	Status       Status     `gorm:"size:32;not null;index" json:"status"`
}

func (o *ProductionOrder) Kind() OrderKind { return KindProductionOrder }
func (o *ProductionOrder) CurrentStatus() Status { return o.Status }
func (o *ProductionOrder) SetStatus(s Status) { o.Status = s }
func (o *ProductionOrder) PipelineRef() *string { return o.PipelineID }

// OutboundOrder moves finished goods out of the warehouse.
type OutboundOrder struct {
	TenantModel

	PipelineID     *string    `gorm:"type:uuid;index" json:"pipeline_id"`
	Number         string     `gorm:"size:64;not null;index" json:"number"`
	Carrier        string     `gorm:"size:128" json:"carrier"`
	TrackingNumber string     `gorm:"size:128" json:"tracking_number"`
	Address        string     `json:"address"`
	ShipDate       *time.Time `gorm:"index" json:"ship_date"`
	Status         Status     `gorm:"size:32;not null;index" json:"status"`
}

func (o *OutboundOrder) Kind() OrderKind { return KindOutboundOrder }
func (o *OutboundOrder) CurrentStatus() Status { return o.Status }
func (o *OutboundOrder) SetStatus(s Status) { o.Status = s }
func (o *OutboundOrder) PipelineRef() *string { return o.PipelineID }

// Pipeline tracks one sales order through purchasing, production and shipping.
// Its status is derived from the linked sub-orders and never set directly by clients.
type Pipeline struct {
	TenantModel

	Number       string      `gorm:"size:64;not null;index" json:"number"`
	Title        string      `gorm:"size:255" json:"title"`
	SalesOrderID *string     `gorm:"type:uuid;index" json:"sales_order_id"`
	SalesOrder   *SalesOrder `json:"sales_order,omitempty"`
	DueDate      *time.Time  `gorm:"index" json:"due_date"`
	Status       Status      `gorm:"size:32;not null;index" json:"status"`

	PurchaseOrders   []PurchaseOrder   `gorm:"foreignKey:PipelineID" json:"purchase_orders,omitempty"`
	ProductionOrders []ProductionOrder `gorm:"foreignKey:PipelineID" json:"production_orders,omitempty"`
	OutboundOrders   []OutboundOrder   `gorm:"foreignKey:PipelineID" json:"outbound_orders,omitempty"`
}

func (o *SalesOrder) GetNumber() string { return o.Number }
func (o *SalesOrder) SetNumber(n string) { o.Number = n }
func (o *Pipeline) GetNumber() string { return o.Number }
func (o *Pipeline) SetNumber(n string) { o.Number = n }
func (o *PurchaseOrder) GetNumber() string { return o.Number }
func (o *PurchaseOrder) SetNumber(n string) { o.Number = n }
func (o *ProductionOrder) GetNumber() string { return o.Number }
func (o *ProductionOrder) SetNumber(n string) { o.Number = n }
func (o *OutboundOrder) GetNumber() string { return o.Number }
func (o *OutboundOrder) SetNumber(n string) { o.Number = n }

// SetPipelineRef links or unlinks the order from a pipeline.
func (o *PurchaseOrder) SetPipelineRef(id *string) { o.PipelineID = id }

// SetPipelineRef links or unlinks the order from a pipeline.
func (o *ProductionOrder) SetPipelineRef(id *string) { o.PipelineID = id }

// SetPipelineRef links or unlinks the order from a pipeline.
func (o *OutboundOrder) SetPipelineRef(id *string) { o.PipelineID = id }
