package protocol

const (
	// Shop creation/removal.
	ErrInvalidLocation = "E_INVALID_LOCATION"
	ErrAlreadyVendor   = "E_ALREADY_VENDOR"
	ErrInvalidAmount   = "E_INVALID_AMOUNT"
	ErrNotOwner        = "E_NOT_OWNER"

	// Trade attempt outcomes. These are user-facing, never logged as errors.
	ErrUnavailable          = "E_UNAVAILABLE"
	ErrMarkerMissing        = "E_MARKER_MISSING"
	ErrBusy                 = "E_BUSY"
	ErrVendorGone           = "E_VENDOR_GONE"
	ErrOutOfStock           = "E_OUT_OF_STOCK"
	ErrVendorFull           = "E_VENDOR_FULL"
	ErrInsufficientPayment  = "E_INSUFFICIENT_PAYMENT"
	ErrInsufficientSpace    = "E_INSUFFICIENT_SPACE"
	ErrPaymentRemovalFailed = "E_PAYMENT_REMOVAL_FAILED"
)

var knownCodes = map[string]struct{}{
	ErrInvalidLocation:      {},
	ErrAlreadyVendor:        {},
	ErrInvalidAmount:        {},
	ErrNotOwner:             {},
	ErrUnavailable:          {},
	ErrMarkerMissing:        {},
	ErrBusy:                 {},
	ErrVendorGone:           {},
	ErrOutOfStock:           {},
	ErrVendorFull:           {},
	ErrInsufficientPayment:  {},
	ErrInsufficientSpace:    {},
	ErrPaymentRemovalFailed: {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
