package iso7816

import (
	"strings"
)

// A Transaction is one C-APDU and the R-APDU that answered it.
// A Trace is every Transaction made for one logical command: a SELECT
// answered with 61XX shows up as SELECT + GET RESPONSE.

// Transaction represents a completed Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// Trace is a chronological sequence of transactions.
type Trace []Transaction

// Last returns the final transaction of the trace, or nil.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// Status returns the final status word, or 0 for an empty trace.
func (t Trace) Status() StatusWord {
	last := t.Last()
	if last == nil || last.Response == nil {
		return 0
	}
	return last.Response.Status
}

// Response returns the final response re-assembled as raw bytes
// (Data || SW1 SW2), or nil for an empty trace.
func (t Trace) Response() []byte {
	last := t.Last()
	if last == nil || last.Response == nil {
		return nil
	}
	return last.Response.Bytes()
}

// String lists the instructions of the trace, e.g. "SELECT > GET RESPONSE".
func (t Trace) String() string {
	steps := make([]string, 0, len(t))
	for _, tx := range t {
		if tx.Command == nil {
			steps = append(steps, "?")
			continue
		}
		steps = append(steps, tx.Command.Instruction.Raw.String())
	}
	return strings.Join(steps, " > ")
}
