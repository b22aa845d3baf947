/*
Package iso7816 implements the command/response layer used to talk to contactless smart cards according to ISO/IEC 7816-4.

It covers the pieces a terminal needs to drive a card session: Command APDU encoding (short and extended lengths), Response APDU parsing, Class and Instruction bytes, Status Word analysis, and a Client that hides the T=0 transport procedures from the caller.

# Fundamentals

The communication with a card is strictly request/response:
 1. The terminal sends a Command APDU (Header + optional Body).
 2. The card answers with a Response APDU (optional Body + Trailer SW1/SW2).

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Normal processing.
  - 0x61XX: Normal processing, XX bytes still available.
  - 0x6CXX: Wrong Le, XX is the correct length.
  - Other: warnings and errors.

The Client resolves 61XX and 6CXX itself; callers judge the final status
of the Trace with StatusWord.IsNormal (exactly 9000).

# Usage Example: Selecting an application

	client := iso7816.NewClient(card)

	trace, err := client.Send(ctx, iso7816.SelectByAID(iso7816.InterindustryClass, aid))
	if err != nil {
	    return err
	}

	if last := trace.Last(); last.Response.Status.IsNormal() {
	    fmt.Printf("selected, FCI: %X\n", last.Response.Data)
	}
*/
package iso7816
