package merge

import (
	"github.com/cuemby/tableside/pkg/types"
)

// MergeSnapshotWithJournal appends each reservation's pending entries to the
// end of its menu lines. The snapshot is deep-copied and never modified, so
// merging the same (snapshot, journal) pair twice yields identical results.
// Journal entries for reservations absent from the snapshot are ignored.
func MergeSnapshotWithJournal(snapshot *types.Envelope, journal types.Journal) *types.Envelope {
	if snapshot == nil {
		return nil
	}

	merged := CloneEnvelope(snapshot)
	for i := range merged.Data {
		r := &merged.Data[i]
		for _, entry := range journal[r.ReservationCode] {
			r.Menus = append(r.Menus, entry.MenuLine())
		}
	}
	return merged
}

// ProjectToViewModel maps a merged snapshot to presentation rows. An absent or
// unsuccessful envelope projects to no rows.
func ProjectToViewModel(merged *types.Envelope) []types.ReservationView {
	views := []types.ReservationView{}
	if merged == nil || !merged.Success || merged.Data == nil {
		return views
	}

	for _, r := range merged.Data {
		orders := make([]types.OrderView, 0, len(r.Menus))
		for _, line := range r.Menus {
			orders = append(orders, types.OrderView{
				ID:        line.ID,
				Dish:      line.Name,
				Quantity:  line.Quantity,
				Price:     line.Price,
				Confirmed: !line.IsNew,
			})
		}

		tables := make([]types.Table, len(r.Tables))
		copy(tables, r.Tables)

		views = append(views, types.ReservationView{
			ID:              r.ReservationCode,
			ReservationCode: r.ReservationCode,
			Tables:          tables,
			Orders:          orders,
		})
	}
	return views
}

// ConfirmedOrders returns the orders the kitchen has acknowledged
func ConfirmedOrders(orders []types.OrderView) []types.OrderView {
	return filterOrders(orders, true)
}

// PendingOrders returns the locally added orders still awaiting confirmation
func PendingOrders(orders []types.OrderView) []types.OrderView {
	return filterOrders(orders, false)
}

func filterOrders(orders []types.OrderView, confirmed bool) []types.OrderView {
	out := []types.OrderView{}
	for _, o := range orders {
		if o.Confirmed == confirmed {
			out = append(out, o)
		}
	}
	return out
}

// CloneEnvelope returns a deep copy of e
func CloneEnvelope(e *types.Envelope) *types.Envelope {
	if e == nil {
		return nil
	}

	out := &types.Envelope{Success: e.Success}
	if e.Data == nil {
		return out
	}

	out.Data = make([]types.Reservation, len(e.Data))
	for i, r := range e.Data {
		out.Data[i] = types.Reservation{ReservationCode: r.ReservationCode}
		if r.Tables != nil {
			out.Data[i].Tables = append([]types.Table{}, r.Tables...)
		}
		if r.Menus != nil {
			out.Data[i].Menus = append([]types.MenuLine{}, r.Menus...)
		}
	}
	return out
}
