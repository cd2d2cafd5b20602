package events

import (
	"github.com/cuemby/tableside/pkg/merge"
)

// Metadata keys set on mutation events
const (
	MetaKind            = "kind"
	MetaReservationCode = "reservation_code"
	MetaError           = "error"
)

// Notifier turns mutation outcomes into broker events
type Notifier struct {
	broker *Broker
}

// NewNotifier creates a Notifier publishing to broker
func NewNotifier(broker *Broker) *Notifier {
	return &Notifier{broker: broker}
}

// Succeeded publishes a mutation.succeeded event
func (n *Notifier) Succeeded(kind merge.MutationKind, reservationCode, message string) {
	n.broker.Publish(&Event{
		Type:    EventMutationSucceeded,
		Message: message,
		Metadata: map[string]string{
			MetaKind:            kind.String(),
			MetaReservationCode: reservationCode,
		},
	})
}

// Failed publishes a mutation.failed event carrying the error text
func (n *Notifier) Failed(kind merge.MutationKind, reservationCode, message string, err error) {
	meta := map[string]string{
		MetaKind:            kind.String(),
		MetaReservationCode: reservationCode,
	}
	if err != nil {
		meta[MetaError] = err.Error()
	}
	n.broker.Publish(&Event{
		Type:     EventMutationFailed,
		Message:  message,
		Metadata: meta,
	})
}
