package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
)

func TestPurchaseHappyPath(t *testing.T) {
	m := MustFor(models.KindPurchaseOrder)
	require.Equal(t, models.StatusPending, m.Initial())

	status := m.Initial()
	for _, action := range []permissions.Action{permissions.ActionApprove, permissions.ActionPlace, permissions.ActionReceive} {
		next, err := m.Next(status, action)
		require.NoError(t, err)
		status = next
	}
	require.Equal(t, models.StatusReceived, status)
	require.True(t, m.Terminal(status))
}

func TestNextRejectsUnknownAndInvalidActions(t *testing.T) {
	m := MustFor(models.KindOutboundOrder)

	_, err := m.Next(models.StatusPending, permissions.ActionConfirm)
	require.ErrorIs(t, err, ErrUnknownAction)

	_, err = m.Next(models.StatusShipped, permissions.ActionCancel)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.Next(models.StatusDelivered, permissions.ActionShip)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestProductionCancelFromAnyNonTerminal(t *testing.T) {
	m := MustFor(models.KindProductionOrder)
	for _, status := range []models.Status{models.StatusPending, models.StatusMaterialIssued, models.StatusInProgress} {
		next, err := m.Next(status, permissions.ActionCancel)
		require.NoError(t, err, status)
		require.Equal(t, models.StatusCancelled, next)
	}
	_, err := m.Next(models.StatusCompleted, permissions.ActionCancel)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSalesAvailableActions(t *testing.T) {
	m := MustFor(models.KindSalesOrder)
	require.Equal(t, []permissions.Action{permissions.ActionConfirm, permissions.ActionCancel}, m.Available(models.StatusDraft))
	require.Equal(t, []permissions.Action{permissions.ActionCancel}, m.Available(models.StatusConfirmed))
	require.Empty(t, m.Available(models.StatusCancelled))
}

func TestEveryWorkflowActionIsCataloged(t *testing.T) {
	for _, kind := range []models.OrderKind{
		models.KindSalesOrder, models.KindPurchaseOrder, models.KindProductionOrder, models.KindOutboundOrder,
	} {
		m := MustFor(kind)
		for _, edges := range m.transitions {
			for action := range edges {
				_, ok := permissions.Lookup(permissions.ResourceType(kind), action)
				require.True(t, ok, "%s.%s missing from catalog", kind, action)
			}
		}
	}
}

func TestForUnknownKind(t *testing.T) {
	_, ok := For(models.KindPipeline)
	require.False(t, ok)
	require.Panics(t, func() { MustFor(models.KindPipeline) })
}

func TestStatusesListsReachableStatuses(t *testing.T) {
	require.Equal(t, []models.Status{
		models.StatusPending, models.StatusPicking, models.StatusCancelled, models.StatusShipped, models.StatusDelivered,
	}, MustFor(models.KindOutboundOrder).Statuses())
	require.Equal(t, []models.Status{
		models.StatusDraft, models.StatusConfirmed, models.StatusCancelled,
	}, MustFor(models.KindSalesOrder).Statuses())
}
