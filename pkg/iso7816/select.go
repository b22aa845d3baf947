package iso7816

// SELECT (INS 'A4', ISO 7816-4 §11.1.1).
//
// P1 picks the selection method; the reader only selects by DF name.
// P2 combines the occurrence (bits 2-1) and the response type (bits 4-3);
// first or only occurrence with an FCI answer is 0x00.
const (
	selectByDFName = 0x04
	selectFirstFCI = 0x00
)

// SelectByAID selects an application by its DF name, first or only
// occurrence, FCI requested: 00 A4 04 00 Lc AID.
//
// No Le is sent: T=0 cannot carry Lc and Le together, and the card answers
// 61XX which the Client follows up.
func SelectByAID(cla Class, aid []byte) *CommandAPDU {
	return NewCommandAPDU(cla, MustInstruction(INS_SELECT), selectByDFName, selectFirstFCI, aid, 0)
}
