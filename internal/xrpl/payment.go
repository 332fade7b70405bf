package xrpl

// Payment is a Payment transaction. Only the fields the executor uses are modelled.
type Payment struct {
	Account            string
	Destination        string
	Amount             Amount
	SendMax            *Amount
	DeliverMin         *Amount
	Flags              uint32
	Fee                string // drops, filled by the submitter when empty
	Sequence           uint32 // filled by the submitter when zero
	LastLedgerSequence uint32 // filled by the submitter when zero
}

// Payment flags.
const (
	TfPartialPayment uint32 = 0x00020000
	TfLimitQuality   uint32 = 0x00040000
)

// paymentTxType is the TransactionType code of Payment.
const paymentTxType uint16 = 0
