package core

import "fmt"

// DeliveryKind tells receivers how to filter a broadcast message.
type DeliveryKind int

const (
	// DeliverAllBut reaches every subscriber except the one whose id matches.
	DeliverAllBut DeliveryKind = iota
	// DeliverTo reaches only the subscriber whose id matches.
	DeliverTo
)

func (k DeliveryKind) String() string {
	switch k {
	case DeliverAllBut:
		return "all_but"
	case DeliverTo:
		return "to"
	default:
		return fmt.Sprintf("delivery(%d)", int(k))
	}
}

// Message is a fully rendered line published on the bus by the room.
type Message struct {
	Kind DeliveryKind
	ID   uint64
	Text string
}

// AllBut builds a message for everyone except id.
func AllBut(id uint64, text string) Message {
	return Message{Kind: DeliverAllBut, ID: id, Text: text}
}

// To builds a message for id only.
func To(id uint64, text string) Message {
	return Message{Kind: DeliverTo, ID: id, Text: text}
}

// For reports whether the session with the given id should write m.
func (m Message) For(id uint64) bool {
	if m.Kind == DeliverTo {
		return m.ID == id
	}
	return m.ID != id
}
