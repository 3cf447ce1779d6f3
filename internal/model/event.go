package model

import "time"

// BreakerTransitionEvent is emitted when a circuit breaker changes state.
type BreakerTransitionEvent struct {
	Breaker   string
	From      string
	To        string
	Failures  int64
	Successes int64
	At        time.Time
	// Reason is "threshold", "probe_failed", "reset_timeout", "recovered" or "manual_reset".
	Reason string
}

// Transition reasons.
const (
	ReasonThreshold    = "threshold"
	ReasonProbeFailed  = "probe_failed"
	ReasonResetTimeout = "reset_timeout"
	ReasonRecovered    = "recovered"
	ReasonManualReset  = "manual_reset"
)

// CommentEvent is an issue or pull request comment addressed to the bot.
type CommentEvent struct {
	DeliveryID  string
	Repository  string // owner/repo
	IssueNumber int
	CommentID   int64
	Author      string
	Body        string
	// IsPullRequest reports whether the comment was made on a pull request.
	IsPullRequest bool
}
