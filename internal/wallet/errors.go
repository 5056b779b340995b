package wallet

import "errors"

// Errors surfaced to callers of wallet operations
var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")  // amount <= 0
	ErrInsufficientFunds = errors.New("insufficient funds")                // debit exceeds balance
	ErrWalletNotFound    = errors.New("wallet not found")                  // unknown wallet ID or owner
	ErrWalletExists      = errors.New("wallet already exists")             // one wallet per owner
)
