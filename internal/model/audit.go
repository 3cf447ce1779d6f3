package model

import "time"

// CommandAuditRecord is one parsed command accepted from a comment.
type CommandAuditRecord struct {
	DeliveryID  string
	Repository  string
	IssueNumber int
	CommentID   int64
	Author      string
	CommandType string
	// IsPullRequest reports whether the comment was made on a pull request rather than an issue.
	IsPullRequest bool
	// Payload is the JSON encoding of the parsed command.
	Payload    string
	ReceivedAt time.Time
}
