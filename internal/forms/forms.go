// Package forms layers domain validation on top of the confirmation gate.
// Each form owns one draft, its field-level error slots, and the debounced
// external lookups its fields drive. Validation errors are user-fixable and
// surfaced inline; they are never returned as Go errors.
package forms

// ErrorCode identifies one validation error slot. Each rule owns a distinct
// slot so unrelated errors do not clobber each other.
type ErrorCode string

const (
	ErrCodeInvalidBidder       ErrorCode = "invalid_bidder"
	ErrCodeInvalidNewname      ErrorCode = "invalid_newname"
	ErrCodeInvalidBid          ErrorCode = "invalid_bid"
	ErrCodeNotEnoughBalance    ErrorCode = "not_enough_balance"
	ErrCodeNewnameTooLong      ErrorCode = "newname_too_long"
	ErrCodeNameNotAvailable    ErrorCode = "account_name_not_available"
	ErrCodeAlreadyHighBidder   ErrorCode = "account_name_already_bid"
	ErrCodeBidTooLow           ErrorCode = "bid_too_low"
	ErrCodeInvalidAccountName  ErrorCode = "invalid_accountName"
	ErrCodeInvalidMemo         ErrorCode = "invalid_memo"
	ErrCodeTransferToSelf      ErrorCode = "cannot_transfer_to_self"
	ErrCodeExchangeNeedsMemo   ErrorCode = "transferring_to_exchange_without_memo"
)

// errorSet tracks which slots are currently raised.
type errorSet map[ErrorCode]bool

func (s errorSet) set(code ErrorCode, on bool) {
	if on {
		s[code] = true
	} else {
		delete(s, code)
	}
}

// inOrder returns the raised codes filtered to the given precedence order.
func (s errorSet) inOrder(order []ErrorCode) []ErrorCode {
	var out []ErrorCode
	for _, code := range order {
		if s[code] {
			out = append(out, code)
		}
	}
	return out
}
