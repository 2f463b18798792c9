package txmgr

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SendErrorKind classifies a transaction send failure
type SendErrorKind int

const (
	// SendFatal means the send failed for a reason retrying will not fix
	SendFatal SendErrorKind = iota
	// SendRetryable means the node rejected the transaction as a replacement
	// priced below the one already pending at that nonce; resending with a
	// higher gas price can succeed.
	SendRetryable
)

// ClassifySendError maps a raw SendTransaction error onto a retry decision.
// Classification lives here so callers branch on the kind, not on message
// substrings scattered through the codebase.
func ClassifySendError(err error) SendErrorKind {
	if err == nil {
		return SendFatal
	}
	if strings.Contains(err.Error(), "replacement transaction underpriced") {
		return SendRetryable
	}
	return SendFatal
}

// RetriesExhaustedError is returned when a retryable send keeps failing past
// the configured attempt bound.
type RetriesExhaustedError struct {
	Retries int
	Last    error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("transaction failed after %d retries: %v", e.Retries, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}

// RevertError means the transaction was included in a block but reverted. The
// hash is kept so callers can link the failure to an explorer.
type RevertError struct {
	Hash common.Hash
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("transaction %s reverted on-chain", e.Hash.Hex())
}

// ConfirmationError means the transaction succeeded at inclusion but did not
// survive to the configured confirmation depth, typically due to a reorg.
type ConfirmationError struct {
	Hash common.Hash
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("transaction %s failed during confirmation", e.Hash.Hex())
}
