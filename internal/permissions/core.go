package permissions

func init() {
	defs := []*Definition{
		{Resource: ResourceSalesOrder, Action: ActionConfirm, Description: "Confirm a draft sales order"},
		{Resource: ResourceSalesOrder, Action: ActionCancel, Description: "Cancel a sales order"},

		{Resource: ResourcePurchaseOrder, Action: ActionApprove, Description: "Approve a purchase order"},
		{Resource: ResourcePurchaseOrder, Action: ActionPlace, Description: "Place an approved purchase order with the supplier"},
		{Resource: ResourcePurchaseOrder, Action: ActionReceive, Description: "Receive purchased materials"},
		{Resource: ResourcePurchaseOrder, Action: ActionCancel, Description: "Cancel a purchase order"},

		{Resource: ResourceProductionOrder, Action: ActionIssue, Description: "Issue materials to production"},
		{Resource: ResourceProductionOrder, Action: ActionStartProduction, Description: "Start production"},
		{Resource: ResourceProductionOrder, Action: ActionComplete, Description: "Complete production"},
		{Resource: ResourceProductionOrder, Action: ActionCancel, Description: "Cancel a production order"},

		{Resource: ResourceOutboundOrder, Action: ActionPick, Description: "Start picking goods"},
		{Resource: ResourceOutboundOrder, Action: ActionShip, Description: "Hand goods to the carrier"},
		{Resource: ResourceOutboundOrder, Action: ActionDeliver, Description: "Confirm delivery"},
		{Resource: ResourceOutboundOrder, Action: ActionCancel, Description: "Cancel an outbound order"},

		{Resource: ResourcePipeline, Action: ActionResync, Description: "Recompute the pipeline status"},
	}

	for _, def := range defs {
		if err := Register(def); err != nil {
			panic(err)
		}
	}
}
