// Package command extracts bot commands from GitHub issue and pull request comments.
//
// A comment is inspected for a single command addressed to the bot, either through a
// mention ("@bountydotnew submit #12") or a slash shorthand ("/approve #12"). Parsing is
// pure and never fails: malformed commands are treated as absent.
package command

import "unicode/utf8"

// BotMention is the handle the bot answers to.
const BotMention = "@bountydotnew"

// CommandType identifies the kind of command found in a comment.
type CommandType string

const (
	CommandCreate    CommandType = "create"
	CommandSubmit    CommandType = "submit"
	CommandUnsubmit  CommandType = "unsubmit"
	CommandApprove   CommandType = "approve"
	CommandUnapprove CommandType = "unapprove"
	CommandReapprove CommandType = "reapprove"
	CommandMerge     CommandType = "merge"
	CommandMove      CommandType = "move"
)

// String returns the string representation of CommandType
func (t CommandType) String() string {
	return string(t)
}

// BountyCommand is a command extracted from comment text.
//
// Match, StartIndex and EndIndex are set for every type. StartIndex and EndIndex are
// character (rune) offsets into the parsed text. The remaining fields depend on Type:
//   - create: Amount and Currency
//   - submit: optional PRNumber and Description
//   - unsubmit, approve, unapprove, reapprove, merge: optional PRNumber
//   - move: TargetIssueNumber
//
// Optional numeric fields use zero for "absent" since valid values are always positive.
type BountyCommand struct {
	Type       CommandType `json:"type"`
	Match      string      `json:"match"`
	StartIndex int         `json:"startIndex"`
	EndIndex   int         `json:"endIndex"`

	Amount            float64 `json:"amount,omitempty"`
	Currency          string  `json:"currency,omitempty"`
	PRNumber          int     `json:"prNumber,omitempty"`
	Description       string  `json:"description,omitempty"`
	TargetIssueNumber int     `json:"targetIssueNumber,omitempty"`
}

// HasPRNumber reports whether the command references a pull request.
func (c *BountyCommand) HasPRNumber() bool {
	return c != nil && c.PRNumber > 0
}

// IssueRef identifies a GitHub issue.
type IssueRef struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	IssueNumber int    `json:"issueNumber"`
}

// PullRequestRef identifies a GitHub pull request.
type PullRequestRef struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	PRNumber int    `json:"prNumber"`
}

// Strip removes the command's matched span from text and returns the rest.
// The text must be the one cmd was parsed from. A nil command returns text unchanged.
func Strip(text string, cmd *BountyCommand) string {
	if cmd == nil {
		return text
	}
	start := byteOffset(text, cmd.StartIndex)
	end := byteOffset(text, cmd.EndIndex)
	if start < 0 || end < start {
		return text
	}
	return text[:start] + text[end:]
}

// runeOffset converts a byte offset into a rune offset.
func runeOffset(text string, b int) int {
	return utf8.RuneCountInString(text[:b])
}

// byteOffset converts a rune offset into a byte offset, or -1 when out of range.
func byteOffset(text string, r int) int {
	if r < 0 {
		return -1
	}
	n := 0
	for i := range text {
		if n == r {
			return i
		}
		n++
	}
	if n == r {
		return len(text)
	}
	return -1
}
