package merge

import (
	"fmt"

	"github.com/cuemby/tableside/pkg/types"
)

// MutationKind tags the three optimistic mutations
type MutationKind int

const (
	MutationAdd MutationKind = iota + 1
	MutationConfirm
	MutationCancel
)

func (k MutationKind) String() string {
	switch k {
	case MutationAdd:
		return "add"
	case MutationConfirm:
		return "confirm"
	case MutationCancel:
		return "cancel"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Patch is the payload of one optimistic cache change.
// Entries is used by MutationAdd, OrderID by MutationConfirm and MutationCancel.
type Patch struct {
	Kind            MutationKind
	ReservationCode string
	Entries         []types.PendingEntry
	OrderID         types.LineID
}

// AddPatch appends new pending entries to a reservation
func AddPatch(reservationCode string, entries []types.PendingEntry) Patch {
	return Patch{Kind: MutationAdd, ReservationCode: reservationCode, Entries: entries}
}

// ConfirmPatch clears the pending marker of one line, keeping it in place
func ConfirmPatch(reservationCode string, orderID types.LineID) Patch {
	return Patch{Kind: MutationConfirm, ReservationCode: reservationCode, OrderID: orderID}
}

// CancelPatch deletes one line
func CancelPatch(reservationCode string, orderID types.LineID) Patch {
	return Patch{Kind: MutationCancel, ReservationCode: reservationCode, OrderID: orderID}
}

// ApplyPatch returns a patched copy of the cached raw envelope. A nil envelope
// stays nil; reservations other than the target are copied unchanged.
func ApplyPatch(value *types.Envelope, p Patch) *types.Envelope {
	if value == nil {
		return nil
	}

	out := CloneEnvelope(value)
	for i := range out.Data {
		r := &out.Data[i]
		if r.ReservationCode != p.ReservationCode {
			continue
		}

		switch p.Kind {
		case MutationAdd:
			for _, entry := range p.Entries {
				r.Menus = append(r.Menus, entry.MenuLine())
			}
		case MutationConfirm:
			for j := range r.Menus {
				if r.Menus[j].ID == p.OrderID {
					r.Menus[j].IsNew = false
				}
			}
		case MutationCancel:
			kept := make([]types.MenuLine, 0, len(r.Menus))
			for _, line := range r.Menus {
				if line.ID != p.OrderID {
					kept = append(kept, line)
				}
			}
			r.Menus = kept
		}
	}
	return out
}
