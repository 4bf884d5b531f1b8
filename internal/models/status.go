package models

// Status is the lifecycle state shared by orders and pipelines.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"

	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusOrdered  Status = "ORDERED"
	StatusReceived Status = "RECEIVED"

	StatusMaterialIssued Status = "MATERIAL_ISSUED"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusCompleted      Status = "COMPLETED"

	StatusPicking   Status = "PICKING"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"

	StatusPurchasing Status = "PURCHASING"
	StatusProducing  Status = "PRODUCING"
	StatusShipping   Status = "SHIPPING"

	StatusPaid Status = "PAID"
	StatusVoid Status = "VOID"
)

// OrderKind identifies an order-like resource.
type OrderKind string

const (
	KindSalesOrder      OrderKind = "sales_order"
	KindPurchaseOrder   OrderKind = "purchase_order"
	KindProductionOrder OrderKind = "production_order"
	KindOutboundOrder   OrderKind = "outbound_order"
	KindPipeline        OrderKind = "pipeline"
)

// SubOrder is an order that contributes to the derived status of its pipeline.
type SubOrder interface {
	Kind() OrderKind
	GetID() string
	GetTenantID() string
	CurrentStatus() Status
	SetStatus(Status)
	PipelineRef() *string
	SetPipelineRef(*string)
	Numbered
}

// Numbered is implemented by records that carry a human readable number.
type Numbered interface {
	GetNumber() string
	SetNumber(string)
}

// TenantOwned is implemented by every record that embeds TenantModel.
type TenantOwned interface {
	GetTenantID() string
	SetTenantID(string)
}
