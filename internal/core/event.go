package core

// EventKind describes what a session reports to the room.
type EventKind int

const (
	// EventText carries one chat line from a joined session.
	EventText EventKind = iota
	// EventArrive registers a session under the name it chose.
	EventArrive
	// EventLeave removes a previously arrived session.
	EventLeave

	// eventRoster asks the room for the current member names.
	eventRoster
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventArrive:
		return "arrive"
	case EventLeave:
		return "leave"
	case eventRoster:
		return "roster"
	default:
		return "unknown"
	}
}

// Event is sent by sessions to the room intake.
type Event struct {
	Kind EventKind
	ID   uint64
	Name string // EventArrive
	Text string // EventText, newline-terminated

	reply chan []string // eventRoster
}

// Text reports a chat line from id.
func Text(id uint64, line string) Event {
	return Event{Kind: EventText, ID: id, Text: line}
}

// Arrive reports that id joined as name.
func Arrive(id uint64, name string) Event {
	return Event{Kind: EventArrive, ID: id, Name: name}
}

// Leave reports that id is gone.
func Leave(id uint64) Event {
	return Event{Kind: EventLeave, ID: id}
}
