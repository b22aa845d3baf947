package reader

import "fmt"

// State is the position of a session in its lifecycle.
type State int

const (
	Idle State = iota
	Connecting
	Selecting
	Options
	Fetching
	Decoding
	Closing
	Done
)

var stateNames = map[State]string{
	Idle:       "idle",
	Connecting: "connecting",
	Selecting:  "selecting",
	Options:    "options",
	Fetching:   "fetching",
	Decoding:   "decoding",
	Closing:    "closing",
	Done:       "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}
