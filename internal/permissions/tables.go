package permissions

import "github.com/charlesng35/tradeflow/internal/models"

// Action names a state transition.
type Action string

const (
	ActionConfirm         Action = "confirm"
	ActionCancel          Action = "cancel"
	ActionApprove         Action = "approve"
	ActionPlace           Action = "place"
	ActionReceive         Action = "receive"
	ActionIssue           Action = "issue"
	ActionStartProduction Action = "start_production"
	ActionComplete        Action = "complete"
	ActionPick            Action = "pick"
	ActionShip            Action = "ship"
	ActionDeliver         Action = "deliver"
	ActionResync          Action = "resync"
)

// ResourceType names a writable resource.
type ResourceType string

const (
	ResourceSalesOrder      ResourceType = ResourceType(models.KindSalesOrder)
	ResourcePipeline        ResourceType = ResourceType(models.KindPipeline)
	ResourcePurchaseOrder   ResourceType = ResourceType(models.KindPurchaseOrder)
	ResourceProductionOrder ResourceType = ResourceType(models.KindProductionOrder)
	ResourceOutboundOrder   ResourceType = ResourceType(models.KindOutboundOrder)
	ResourcePayment         ResourceType = "payment"
)

// AllResources returns every writable resource type.
func AllResources() []ResourceType {
	return []ResourceType{
		ResourceSalesOrder,
		ResourcePipeline,
		ResourcePurchaseOrder,
		ResourceProductionOrder,
		ResourceOutboundOrder,
		ResourcePayment,
	}
}

// Actions lists the transitions each role may perform.
var Actions = NewTable(map[models.Role]Grant[Action]{
	models.RoleAdmin:      All[Action](),
	models.RoleSale:       Only(ActionConfirm, ActionCancel),
	models.RolePurchase:   Only(ActionApprove, ActionPlace, ActionReceive, ActionCancel),
	models.RoleProduction: Only(ActionIssue, ActionStartProduction, ActionComplete),
	models.RoleWarehouse:  Only(ActionPick, ActionShip, ActionDeliver),
})

// Resources lists the resource types each role may create, update or delete.
var Resources = NewTable(map[models.Role]Grant[ResourceType]{
	models.RoleAdmin:      All[ResourceType](),
	models.RoleSale:       Only(ResourceSalesOrder, ResourcePipeline, ResourcePayment),
	models.RolePurchase:   Only(ResourcePurchaseOrder, ResourcePayment),
	models.RoleProduction: Only(ResourceProductionOrder),
	models.RoleWarehouse:  Only(ResourceOutboundOrder),
})

// PaymentCategories lists the payment categories each role may view or manage.
var PaymentCategories = NewTable(map[models.Role]Grant[models.PaymentCategory]{
	models.RoleAdmin:      All[models.PaymentCategory](),
	models.RoleSale:       Only(models.PaymentReceivable, models.PaymentRefund),
	models.RolePurchase:   Only(models.PaymentPayable),
	models.RoleWarehouse:  Only(models.PaymentFreight),
	models.RoleProduction: Only[models.PaymentCategory](),
})
