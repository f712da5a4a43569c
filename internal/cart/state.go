package cart

import (
	"fmt"

	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
)

// State is the client-side view of the order lifecycle. The backend owns
// the order; this machine only tracks which calls are legal next.
type State string

const (
	// StateNone means the register is free; the first add creates an order.
	StateNone State = "none"
	// StateOpen means an active order is being built.
	StateOpen State = "open"
	// StateHeld means the tracked order is parked server-side.
	StateHeld State = "held"
)

type transition string

const (
	transitionAdd    transition = "add_item"
	transitionMutate transition = "mutate_item"
	transitionCancel transition = "cancel"
	transitionHold   transition = "hold"
	transitionResume transition = "resume"
	transitionSettle transition = "settle"
)

// validTransitions is the single place the lifecycle is encoded; call
// sites never branch on `if orderID == 0` themselves.
var validTransitions = map[State]map[transition]struct{}{
	StateNone: {
		transitionAdd:    {},
		transitionResume: {},
	},
	StateOpen: {
		transitionAdd:    {},
		transitionMutate: {},
		transitionCancel: {},
		transitionHold:   {},
		transitionSettle: {},
	},
	StateHeld: {
		transitionResume: {},
		transitionCancel: {},
	},
}

func (s State) allows(tr transition) error {
	if _, ok := validTransitions[s][tr]; ok {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("%s is not allowed while the order is %s", tr, s))
}
