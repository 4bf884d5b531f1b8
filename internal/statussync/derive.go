package statussync

import "github.com/charlesng35/tradeflow/internal/models"

// Snapshot holds the statuses of every sub-order linked to one pipeline.
type Snapshot struct {
	Purchase   []models.Status
	Production []models.Status
	Outbound   []models.Status
}

// DerivePipelineStatus computes the pipeline status from its sub-orders.
// Cancelled sub-orders are ignored and a cancelled pipeline stays cancelled.
func DerivePipelineStatus(current models.Status, snap Snapshot) models.Status {
	if current == models.StatusCancelled {
		return models.StatusCancelled
	}

	outbound := active(snap.Outbound)
	if len(outbound) > 0 && every(outbound, models.StatusDelivered) {
		return models.StatusCompleted
	}
	if some(outbound, models.StatusPicking, models.StatusShipped, models.StatusDelivered) {
		return models.StatusShipping
	}
	if some(active(snap.Production), models.StatusMaterialIssued, models.StatusInProgress, models.StatusCompleted) {
		return models.StatusProducing
	}
	if some(active(snap.Purchase), models.StatusApproved, models.StatusOrdered, models.StatusReceived) {
		return models.StatusPurchasing
	}
	return models.StatusPending
}

func active(statuses []models.Status) []models.Status {
	out := make([]models.Status, 0, len(statuses))
	for _, status := range statuses {
		if status != models.StatusCancelled {
			out = append(out, status)
		}
	}
	return out
}

func every(statuses []models.Status, want models.Status) bool {
	for _, status := range statuses {
		if status != want {
			return false
		}
	}
	return true
}

func some(statuses []models.Status, wants ...models.Status) bool {
	for _, status := range statuses {
		for _, want := range wants {
			if status == want {
				return true
			}
		}
	}
	return false
}
