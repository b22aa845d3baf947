package iso7816

import (
	"context"
	"errors"
	"fmt"
)

// CLIENT & PROTOCOL LOGIC:
// The Client sits on top of the physical link and resolves the T=0 transport
// procedures that leak into the application layer:
//
// 1. "61 XX": XX bytes are waiting. The Client sends GET RESPONSE (Le=XX).
// 2. "6C XX": Le was wrong. The Client re-sends the command with Le=XX.
//
// Send returns a Trace holding every physical exchange made to fulfil the
// logical command.

// ErrShortResponse is returned when the card answers with fewer than the two
// status bytes.
var ErrShortResponse = errors.New("response too short")

// maxFollowUps bounds the 61XX/6CXX chain so a misbehaving card cannot keep
// the Client looping.
const maxFollowUps = 4

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(ctx context.Context, cmd []byte) ([]byte, error)
}

// Client manages the high-level communication with the card.
type Client struct {
	Card Transmitter
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits cmd and follows 61XX/6CXX procedures.
// On error the returned Trace holds the exchanges completed so far.
func (c *Client) Send(ctx context.Context, cmd *CommandAPDU) (Trace, error) {
	return c.send(ctx, cmd, nil, 0)
}

func (c *Client) send(ctx context.Context, cmd *CommandAPDU, trace Trace, depth int) (Trace, error) {
	rawCmd, err := cmd.Bytes()
	if err != nil {
		return trace, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.Card.Transmit(ctx, rawCmd)
	if err != nil {
		return trace, fmt.Errorf("transmission error: %w", err)
	}

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return trace, err
	}

	trace = append(trace, Transaction{Command: cmd, Response: resp})

	if depth >= maxFollowUps {
		return trace, nil
	}

	sw1, sw2 := resp.Status.SW1(), resp.Status.SW2()

	switch sw1 {
	case 0x61:
		// GET RESPONSE stays on the logical channel of the original command.
		cla := cmd.Class
		cla.IsChained = false

		ne := int(sw2)
		if ne == 0 {
			ne = MaxShortLe
		}

		getResp := NewCommandAPDU(cla, MustInstruction(INS_GET_RESPONSE), 0x00, 0x00, nil, ne)
		return c.send(ctx, getResp, trace, depth+1)

	case 0x6C:
		retry := *cmd
		retry.Ne = int(sw2)
		if retry.Ne == 0 {
			retry.Ne = MaxShortLe
		}
		return c.send(ctx, &retry, trace, depth+1)
	}

	return trace, nil
}
