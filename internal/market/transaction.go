package market

import "tradepost.gg/internal/sim/items"

// TxState is the terminal disposition of a trade attempt.
type TxState int

const (
	TxPending TxState = iota
	TxCompleted
	TxFailed
)

// Transaction is one trade attempt: a shop snapshot, the initiating actor,
// and the outcome it accumulated. It is ephemeral and never persisted.
type Transaction struct {
	Shop    *Shop
	ActorID string
	Offered items.Amount
	Asked   items.Amount

	State   TxState
	Code    string // protocol.Err* on failure
	Message string
}

func newTransaction(shop *Shop, actorID string) *Transaction {
	return &Transaction{
		Shop:    shop,
		ActorID: actorID,
		Offered: shop.Offered,
		Asked:   shop.Asked,
	}
}

func failedTransaction(shop *Shop, actorID, code, msg string) *Transaction {
	t := &Transaction{Shop: shop, ActorID: actorID}
	if shop != nil {
		t.Offered = shop.Offered
		t.Asked = shop.Asked
	}
	t.fail(code, msg)
	return t
}

func (t *Transaction) fail(code, msg string) {
	t.State = TxFailed
	t.Code = code
	t.Message = msg
}

func (t *Transaction) complete() {
	t.State = TxCompleted
	t.Code = ""
	t.Message = ""
}

func (t *Transaction) Completed() bool { return t.State == TxCompleted }

// Error is a coded failure for shop creation and removal.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code
	}
	return e.Code + ": " + e.Msg
}

func codedErr(code, msg string) *Error { return &Error{Code: code, Msg: msg} }

// ErrCode extracts the failure code from an engine error, or "".
func ErrCode(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
