package iso7816

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

// scriptedCard answers each Transmit with the next canned response and
// records what it received.
type scriptedCard struct {
	responses [][]byte
	errs      []error
	sent      [][]byte
}

func (s *scriptedCard) Transmit(_ context.Context, cmd []byte) ([]byte, error) {
	i := len(s.sent)
	s.sent = append(s.sent, cmd)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.responses) {
		return nil, errors.New("script exhausted")
	}
	return s.responses[i], nil
}

func TestClient_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("Direct 9000", func(t *testing.T) {
		card := &scriptedCard{responses: [][]byte{tlv.Hex("6F00 9000")}}
		trace, err := NewClient(card).Send(ctx, SelectByAID(InterindustryClass, tlv.Hex("A0000000041010")))
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if len(trace) != 1 || trace.Status() != SW_NO_ERROR {
			t.Errorf("unexpected trace %s / %04X", trace, uint16(trace.Status()))
		}
		if diff := cmp.Diff(tlv.Hex("6F00 9000"), trace.Response()); diff != "" {
			t.Errorf("Response mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("61XX triggers GET RESPONSE", func(t *testing.T) {
		card := &scriptedCard{responses: [][]byte{
			tlv.Hex("6104"),
			tlv.Hex("6F02 5000 9000"),
		}}
		trace, err := NewClient(card).Send(ctx, SelectByAID(InterindustryClass, tlv.Hex("A0000000041010")))
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if got := trace.String(); got != "SELECT > GET RESPONSE" {
			t.Errorf("trace = %q", got)
		}
		if diff := cmp.Diff(tlv.Hex("00C0000004"), card.sent[1]); diff != "" {
			t.Errorf("GET RESPONSE mismatch (-want +got):\n%s", diff)
		}
		if !trace.Status().IsNormal() {
			t.Errorf("final status %04X", uint16(trace.Status()))
		}
	})

	t.Run("6CXX re-sends with corrected Le", func(t *testing.T) {
		card := &scriptedCard{responses: [][]byte{
			tlv.Hex("6C10"),
			tlv.Hex("70 00 9000"),
		}}
		_, err := NewClient(card).Send(ctx, mustReadRecord(t, 1, 1))
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if diff := cmp.Diff(tlv.Hex("00B2010C10"), card.sent[1]); diff != "" {
			t.Errorf("retry mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Endless 61XX is bounded", func(t *testing.T) {
		card := &scriptedCard{}
		for i := 0; i < 10; i++ {
			card.responses = append(card.responses, tlv.Hex("6101"))
		}
		trace, err := NewClient(card).Send(ctx, mustReadRecord(t, 1, 1))
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if len(trace) != maxFollowUps+1 {
			t.Errorf("trace length = %d, want %d", len(trace), maxFollowUps+1)
		}
	})

	t.Run("Transport error is wrapped", func(t *testing.T) {
		boom := errors.New("card removed")
		card := &scriptedCard{errs: []error{boom}}
		_, err := NewClient(card).Send(ctx, mustReadRecord(t, 1, 1))
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped transport error, got %v", err)
		}
	})

	t.Run("Short response", func(t *testing.T) {
		card := &scriptedCard{responses: [][]byte{{0x90}}}
		_, err := NewClient(card).Send(ctx, mustReadRecord(t, 1, 1))
		if !errors.Is(err, ErrShortResponse) {
			t.Errorf("expected ErrShortResponse, got %v", err)
		}
	})
}

func TestTrace_Logic(t *testing.T) {
	makeTx := func(sw StatusWord) Transaction {
		return Transaction{Command: &CommandAPDU{}, Response: &ResponseAPDU{Status: sw}}
	}

	var empty Trace
	if empty.Last() != nil || empty.Status() != 0 || empty.Response() != nil {
		t.Error("empty trace should report nothing")
	}

	tr := Trace{makeTx(NewStatusWord(0x61, 0x10)), makeTx(SW_ERR_FILE_NOT_FOUND)}
	if tr.Status() != SW_ERR_FILE_NOT_FOUND {
		t.Errorf("Status() = %04X, want the last status", uint16(tr.Status()))
	}

	nilResp := Trace{{Command: &CommandAPDU{}}}
	if nilResp.Status() != 0 || nilResp.Response() != nil {
		t.Error("transaction without response has no status")
	}
}
