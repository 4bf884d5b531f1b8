// Package workflow holds the static status machines of every order kind.
package workflow

import (
	"errors"
	"fmt"

	"github.com/charlesng35/tradeflow/internal/models"
	"github.com/charlesng35/tradeflow/internal/permissions"
)

var (
	// ErrUnknownAction means the action is not part of the kind's workflow.
	ErrUnknownAction = errors.New("workflow: unknown action")
	// ErrInvalidTransition means the action exists but not from the current status.
	ErrInvalidTransition = errors.New("workflow: transition not allowed from current status")
)

// Machine is the transition table of one order kind.
type Machine struct {
	kind        models.OrderKind
	initial     models.Status
	transitions map[models.Status]map[permissions.Action]models.Status
}

// Kind returns the order kind the machine belongs to.
func (m *Machine) Kind() models.OrderKind { return m.kind }

// Initial returns the status assigned to new records.
func (m *Machine) Initial() models.Status { return m.initial }

// Next resolves the status reached by applying action from current.
func (m *Machine) Next(current models.Status, action permissions.Action) (models.Status, error) {
	if !m.Knows(action) {
		return "", fmt.Errorf("%w %q for %s", ErrUnknownAction, action, m.kind)
	}
	next, ok := m.transitions[current][action]
	if !ok {
		return "", fmt.Errorf("%w: %s cannot %s from %s", ErrInvalidTransition, m.kind, action, current)
	}
	return next, nil
}

// Knows reports whether action appears anywhere in the machine.
func (m *Machine) Knows(action permissions.Action) bool {
	for _, edges := range m.transitions {
		if _, ok := edges[action]; ok {
			return true
		}
	}
	return false
}

// Available lists the actions permitted from current.
func (m *Machine) Available(current models.Status) []permissions.Action {
	edges := m.transitions[current]
	out := make([]permissions.Action, 0, len(edges))
	for _, action := range m.actionOrder() {
		if _, ok := edges[action]; ok {
			out = append(out, action)
		}
	}
	return out
}

// Statuses lists every status reachable from the initial status, breadth first.
func (m *Machine) Statuses() []models.Status {
	order := []models.Status{m.initial}
	visited := map[models.Status]bool{m.initial: true}
	for i := 0; i < len(order); i++ {
		for _, action := range m.Available(order[i]) {
			next := m.transitions[order[i]][action]
			if !visited[next] {
				visited[next] = true
				order = append(order, next)
			}
		}
	}
	return order
}

// Terminal reports whether no action leaves status.
func (m *Machine) Terminal(status models.Status) bool {
	return len(m.transitions[status]) == 0
}

func (m *Machine) actionOrder() []permissions.Action {
	return []permissions.Action{
		permissions.ActionConfirm,
		permissions.ActionApprove,
		permissions.ActionPlace,
		permissions.ActionReceive,
		permissions.ActionIssue,
		permissions.ActionStartProduction,
		permissions.ActionComplete,
		permissions.ActionPick,
		permissions.ActionShip,
		permissions.ActionDeliver,
		permissions.ActionCancel,
	}
}

type edges = map[permissions.Action]models.Status

var (
	salesMachine = &Machine{
		kind:    models.KindSalesOrder,
		initial: models.StatusDraft,
		transitions: map[models.Status]edges{
			models.StatusDraft: {
				permissions.ActionConfirm: models.StatusConfirmed,
				permissions.ActionCancel:  models.StatusCancelled,
			},
			models.StatusConfirmed: {
				permissions.ActionCancel: models.StatusCancelled,
			},
		},
	}

	purchaseMachine = &Machine{
		kind:    models.KindPurchaseOrder,
		initial: models.StatusPending,
		transitions: map[models.Status]edges{
			models.StatusPending: {
				permissions.ActionApprove: models.StatusApproved,
				permissions.ActionCancel:  models.StatusCancelled,
			},
			models.StatusApproved: {
				permissions.ActionPlace:  models.StatusOrdered,
				permissions.ActionCancel: models.StatusCancelled,
			},
			models.StatusOrdered: {
				permissions.ActionReceive: models.StatusReceived,
				permissions.ActionCancel:  models.StatusCancelled,
			},
		},
	}

	productionMachine = &Machine{
		kind:    models.KindProductionOrder,
		initial: models.StatusPending,
		transitions: map[models.Status]edges{
			models.StatusPending: {
				permissions.ActionIssue:  models.StatusMaterialIssued,
				permissions.ActionCancel: models.StatusCancelled,
			},
			models.StatusMaterialIssued: {
				permissions.ActionStartProduction: models.StatusInProgress,
				permissions.ActionCancel:          models.StatusCancelled,
			},
			models.StatusInProgress: {
				permissions.ActionComplete: models.StatusCompleted,
				permissions.ActionCancel:   models.StatusCancelled,
			},
		},
	}

	outboundMachine = &Machine{
		kind:    models.KindOutboundOrder,
		initial: models.StatusPending,
		transitions: map[models.Status]edges{
			models.StatusPending: {
				permissions.ActionPick:   models.StatusPicking,
				permissions.ActionCancel: models.StatusCancelled,
			},
			models.StatusPicking: {
				permissions.ActionShip:   models.StatusShipped,
				permissions.ActionCancel: models.StatusCancelled,
			},
			models.StatusShipped: {
				permissions.ActionDeliver: models.StatusDelivered,
			},
		},
	}
)

// For returns the machine of kind.
func For(kind models.OrderKind) (*Machine, bool) {
	switch kind {
	case models.KindSalesOrder:
		return salesMachine, true
	case models.KindPurchaseOrder:
		return purchaseMachine, true
	case models.KindProductionOrder:
		return productionMachine, true
	case models.KindOutboundOrder:
		return outboundMachine, true
	default:
		return nil, false
	}
}

// MustFor is For for kinds known at compile time.
func MustFor(kind models.OrderKind) *Machine {
	m, ok := For(kind)
	if !ok {
		panic(fmt.Sprintf("workflow: no machine for %s", kind))
	}
	return m
}
