package statussync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tradeflow/internal/models"
)

func TestDerivePipelineStatus(t *testing.T) {
	cases := []struct {
		name    string
		current models.Status
		snap    Snapshot
		want    models.Status
	}{
		{"empty", models.StatusPending, Snapshot{}, models.StatusPending},
		{"cancelled stays cancelled", models.StatusCancelled, Snapshot{Outbound: []models.Status{models.StatusDelivered}}, models.StatusCancelled},
		{"pending purchase", models.StatusPending, Snapshot{Purchase: []models.Status{models.StatusPending}}, models.StatusPending},
		{"approved purchase", models.StatusPending, Snapshot{Purchase: []models.Status{models.StatusPending, models.StatusApproved}}, models.StatusPurchasing},
		{"production beats purchase", models.StatusPurchasing, Snapshot{
			Purchase:   []models.Status{models.StatusReceived},
			Production: []models.Status{models.StatusMaterialIssued},
		}, models.StatusProducing},
		{"outbound picking", models.StatusProducing, Snapshot{
			Production: []models.Status{models.StatusCompleted},
			Outbound:   []models.Status{models.StatusPicking, models.StatusPending},
		}, models.StatusShipping},
		{"all delivered", models.StatusShipping, Snapshot{
			Outbound: []models.Status{models.StatusDelivered, models.StatusCancelled, models.StatusDelivered},
		}, models.StatusCompleted},
		{"only cancelled outbound", models.StatusPending, Snapshot{
			Outbound: []models.Status{models.StatusCancelled},
		}, models.StatusPending},
		{"cancelled production ignored", models.StatusPending, Snapshot{
			Production: []models.Status{models.StatusCancelled},
			Purchase:   []models.Status{models.StatusOrdered},
		}, models.StatusPurchasing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DerivePipelineStatus(tc.current, tc.snap))
		})
	}
}
