package domain

// SignalKind names the three negotiation messages the relay forwards
// between peers without interpreting their payloads.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "ice-candidate"
)

func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return true
	}
	return false
}

// EventKind maps a forwarded signal onto the event delivered to the
// recipient; the vocabulary is identical on both legs.
func (k SignalKind) EventKind() EventKind {
	return EventKind(k)
}
