// Package ledger implements the persistent key-value substrate, the error
// taxonomy, the reentrancy guard, and the oracle-freshness guard shared by
// every other component of the engine.
package ledger

import "errors"

// ErrorCode is the stable numeric discriminant attached to every sentinel
// error below. Values are assigned once and never reused within a
// deployment, matching the taxonomy's requirement that codes stay
// invariant even though the underlying Go error text may be reworded.
type ErrorCode uint32

const (
	CodeAlreadyInitialized ErrorCode = 100 + iota
	CodeNotAuthorized
	CodeAdminNotSet
	CodeGuardianNotSet
	CodeMarketNotFound
	CodeBetNotFound
	CodeMarketNotActive
	CodeMarketClosed
	CodeDeadlinePassed
	CodeInvalidOutcome
	CodeInvalidBetAmount
	CodeInvalidDeadline
	CodeTooManyOutcomes
	CodeCannotChangeOutcome
	CodeParentMarketNotResolved
	CodeParentMarketInvalidOutcome
	CodeInsufficientBalance
	CodeOracleFailure
	CodeOracleUpdateTooRecent
	CodeStalePrice
	CodeResolutionNotReady
	CodeDisputeWindowStillOpen
	CodeDisputeWindowClosed
	CodeVotingNotStarted
	CodeVotingEnded
	CodeAlreadyVoted
	CodeInsufficientVotingWeight
	CodeNoMajorityReached
	CodeMarketNotPendingResolution
	CodeMarketNotDisputed
	CodeMarketNotCancelled
	CodeMarketNotResolved
	CodeNoWinnings
	CodeAlreadyClaimed
	CodeCircuitBreakerOpen
	CodeContractPaused
	CodeInsufficientGuardians
	CodeRecoveryAlreadyActive
	CodeRecoveryNotActive
	CodeRecoveryTimelockNotExpired
	CodeProtocolLocked
	CodeIdentityVerificationRequired
	CodeFeeTooHigh
	CodePayoutModeNotSupported
	CodeAssetClawedBack
	CodeInvalidReferrer
	CodeMarketModeConflict
)

// Error wraps a sentinel with its stable numeric code so translation layers
// (e.g. an embedding HTTP façade) can map to a status code after the error
// has been wrapped with fmt.Errorf("%w", ...) anywhere up the call chain.
type Error struct {
	code ErrorCode
	msg  string
}

func (e *Error) Error() string  { return e.msg }
func (e *Error) Code() ErrorCode { return e.code }

func newErr(code ErrorCode, msg string) *Error { return &Error{code: code, msg: msg} }

// Sentinel errors — compare with errors.Is().
var (
	ErrAlreadyInitialized           = newErr(CodeAlreadyInitialized, "already initialized")
	ErrNotAuthorized                = newErr(CodeNotAuthorized, "not authorized")
	ErrAdminNotSet                  = newErr(CodeAdminNotSet, "admin not set")
	ErrGuardianNotSet               = newErr(CodeGuardianNotSet, "guardian not set")
	ErrMarketNotFound               = newErr(CodeMarketNotFound, "market not found")
	ErrBetNotFound                  = newErr(CodeBetNotFound, "bet not found")
	ErrMarketNotActive              = newErr(CodeMarketNotActive, "market is not active")
	ErrMarketClosed                 = newErr(CodeMarketClosed, "market betting window is closed")
	ErrDeadlinePassed               = newErr(CodeDeadlinePassed, "deadline has passed")
	ErrInvalidOutcome               = newErr(CodeInvalidOutcome, "invalid outcome index")
	ErrInvalidBetAmount             = newErr(CodeInvalidBetAmount, "invalid bet amount")
	ErrInvalidDeadline              = newErr(CodeInvalidDeadline, "invalid deadline ordering")
	ErrTooManyOutcomes              = newErr(CodeTooManyOutcomes, "too many outcomes")
	ErrCannotChangeOutcome          = newErr(CodeCannotChangeOutcome, "bettor cannot change outcome")
	ErrParentMarketNotResolved      = newErr(CodeParentMarketNotResolved, "parent market not resolved")
	ErrParentMarketInvalidOutcome   = newErr(CodeParentMarketInvalidOutcome, "parent market resolved to a different outcome")
	ErrInsufficientBalance          = newErr(CodeInsufficientBalance, "insufficient share balance")
	ErrOracleFailure                = newErr(CodeOracleFailure, "oracle result unavailable")
	ErrOracleUpdateTooRecent        = newErr(CodeOracleUpdateTooRecent, "oracle was updated this ledger sequence")
	ErrStalePrice                   = newErr(CodeStalePrice, "oracle price is stale")
	ErrResolutionNotReady           = newErr(CodeResolutionNotReady, "market is not ready to resolve")
	ErrDisputeWindowStillOpen       = newErr(CodeDisputeWindowStillOpen, "dispute window still open")
	ErrDisputeWindowClosed          = newErr(CodeDisputeWindowClosed, "dispute window closed")
	ErrVotingNotStarted             = newErr(CodeVotingNotStarted, "voting has not started")
	ErrVotingEnded                  = newErr(CodeVotingEnded, "voting period has ended")
	ErrAlreadyVoted                 = newErr(CodeAlreadyVoted, "voter already cast a vote on this market")
	ErrInsufficientVotingWeight     = newErr(CodeInsufficientVotingWeight, "vote weight exceeds snapshot balance")
	ErrNoMajorityReached            = newErr(CodeNoMajorityReached, "no supermajority reached")
	ErrMarketNotPendingResolution   = newErr(CodeMarketNotPendingResolution, "market is not pending resolution")
	ErrMarketNotDisputed            = newErr(CodeMarketNotDisputed, "market is not disputed")
	ErrMarketNotCancelled           = newErr(CodeMarketNotCancelled, "market is not cancelled")
	ErrMarketNotResolved            = newErr(CodeMarketNotResolved, "market is not resolved")
	ErrNoWinnings                   = newErr(CodeNoWinnings, "no winnings for this bettor")
	ErrAlreadyClaimed               = newErr(CodeAlreadyClaimed, "already claimed")
	ErrCircuitBreakerOpen           = newErr(CodeCircuitBreakerOpen, "circuit breaker is open")
	ErrContractPaused               = newErr(CodeContractPaused, "contract is paused")
	ErrInsufficientGuardians        = newErr(CodeInsufficientGuardians, "insufficient guardian approvals")
	ErrRecoveryAlreadyActive        = newErr(CodeRecoveryAlreadyActive, "a recovery proposal is already active for a different admin")
	ErrRecoveryNotActive            = newErr(CodeRecoveryNotActive, "no recovery proposal is active")
	ErrRecoveryTimelockNotExpired   = newErr(CodeRecoveryTimelockNotExpired, "recovery timelock has not expired")
	ErrProtocolLocked               = newErr(CodeProtocolLocked, "reentrant call rejected")
	ErrIdentityVerificationRequired = newErr(CodeIdentityVerificationRequired, "identity verification required")
	ErrFeeTooHigh                   = newErr(CodeFeeTooHigh, "fee exceeds maximum allowed")
	ErrPayoutModeNotSupported       = newErr(CodePayoutModeNotSupported, "payout mode not supported")
	ErrAssetClawedBack              = newErr(CodeAssetClawedBack, "asset clawback detected")
	ErrInvalidReferrer              = newErr(CodeInvalidReferrer, "referrer cannot be the bettor")
	ErrMarketModeConflict           = newErr(CodeMarketModeConflict, "market is locked to a different settlement mode")
)

var notFoundErrors = []error{ErrMarketNotFound, ErrBetNotFound}

// IsNotFound reports whether err (or any error in its chain) is one of the
// "entity not found" sentinels.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var stateConflictErrors = []error{
	ErrMarketNotActive, ErrMarketClosed, ErrMarketNotPendingResolution,
	ErrMarketNotDisputed, ErrMarketNotCancelled, ErrMarketNotResolved,
	ErrCannotChangeOutcome, ErrAlreadyVoted, ErrAlreadyClaimed, ErrRecoveryAlreadyActive,
}

// IsStateConflict reports whether err represents an invalid state transition
// or a repeated one-shot operation.
func IsStateConflict(err error) bool {
	for _, target := range stateConflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var authErrors = []error{
	ErrNotAuthorized, ErrAdminNotSet, ErrGuardianNotSet, ErrIdentityVerificationRequired,
}

// IsAuthError reports whether err represents an authorization failure.
func IsAuthError(err error) bool {
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Code extracts the stable numeric code from err, if it (or something in its
// chain) is a *Error. Returns (0, false) otherwise.
func Code(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}
