package command

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	mentionPattern = regexp.MustCompile(`(?i)@bountydotnew\b`)
	slashPattern   = regexp.MustCompile(`(?i)/(?:submit|unsubmit|approve|unapprove|reapprove|merge)\s*#?\d+`)

	// The fraction group takes every trailing separator run so that malformed amounts
	// such as "1,234" or "9.5.5" reach extractCreate whole instead of being cut short.
	createPattern = regexp.MustCompile(`(?i)@bountydotnew\s+(\d+)((?:[.,]\d*)*)(?:\s*(usd|eur|gbp)\b|\b)`)

	submitSlashPattern   = regexp.MustCompile(`(?i)/submit\s*#?(\d+)`)
	submitMentionPattern = regexp.MustCompile(`(?i)@bountydotnew\s+submit\b(?:[ \t]+#?(\d+)\b)?([^\r\n]*)`)

	unsubmitSlashPattern   = regexp.MustCompile(`(?i)/unsubmit\s*#?(\d+)`)
	unsubmitMentionPattern = regexp.MustCompile(`(?i)@bountydotnew\s+unsubmit\b(?:[ \t]+#?(\d+)\b)?`)

	movePattern = regexp.MustCompile(`(?i)@bountydotnew\s+move\s+#?(\d+)`)
)

// extractFunc fills type-specific fields from the capture groups of a match.
// Returning false rejects the match and lets the next matcher run.
type extractFunc func(cmd *BountyCommand, groups []string) bool

type matcher struct {
	pattern *regexp.Regexp
	extract extractFunc
}

type rule struct {
	kind     CommandType
	matchers []matcher
}

// rules is the extraction table in priority order. Within a rule, slash forms are
// tried before mention forms.
var rules = []rule{
	{kind: CommandCreate, matchers: []matcher{
		{pattern: createPattern, extract: extractCreate},
	}},
	{kind: CommandSubmit, matchers: []matcher{
		{pattern: submitSlashPattern, extract: requirePRNumber},
		{pattern: submitMentionPattern, extract: extractSubmitMention},
	}},
	{kind: CommandUnsubmit, matchers: []matcher{
		{pattern: unsubmitSlashPattern, extract: requirePRNumber},
		{pattern: unsubmitMentionPattern, extract: optionalPRNumber},
	}},
	approvalRule(CommandApprove, "approve"),
	approvalRule(CommandUnapprove, "unapprove"),
	approvalRule(CommandReapprove, "reapprove"),
	approvalRule(CommandMerge, "merge"),
	{kind: CommandMove, matchers: []matcher{
		{pattern: movePattern, extract: extractMove},
	}},
}

// approvalRule builds the rule shared by approve, unapprove, reapprove and merge:
// "/<verb> #N" carries a PR number, "@bountydotnew <verb>" carries none.
func approvalRule(kind CommandType, verb string) rule {
	return rule{kind: kind, matchers: []matcher{
		{pattern: regexp.MustCompile(`(?i)/` + verb + `\s*#?(\d+)`), extract: requirePRNumber},
		{pattern: regexp.MustCompile(`(?i)@bountydotnew\s+` + verb + `\b`)},
	}}
}

// Priority returns the command types in the order they are tried.
func Priority() []CommandType {
	out := make([]CommandType, len(rules))
	for i, r := range rules {
		out[i] = r.kind
	}
	return out
}

// Parse extracts the highest-priority command from text, or returns nil when the text
// holds no valid command.
func Parse(text string) *BountyCommand {
	if !addressesBot(text) {
		return nil
	}
	for _, r := range rules {
		if cmd := r.apply(text); cmd != nil {
			return cmd
		}
	}
	return nil
}

// addressesBot is a fast reject for comments that neither mention the bot nor use a
// slash shorthand.
func addressesBot(text string) bool {
	return mentionPattern.MatchString(text) || slashPattern.MatchString(text)
}

func (r rule) apply(text string) *BountyCommand {
	for _, m := range r.matchers {
		loc := m.pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		cmd := &BountyCommand{
			Type:       r.kind,
			Match:      text[loc[0]:loc[1]],
			StartIndex: runeOffset(text, loc[0]),
			EndIndex:   runeOffset(text, loc[1]),
		}
		if m.extract != nil && !m.extract(cmd, submatches(text, loc)) {
			continue
		}
		return cmd
	}
	return nil
}

// submatches returns capture groups 1..n; groups that did not participate are "".
func submatches(text string, loc []int) []string {
	groups := make([]string, len(loc)/2-1)
	for i := range groups {
		start, end := loc[2*(i+1)], loc[2*(i+1)+1]
		if start >= 0 {
			groups[i] = text[start:end]
		}
	}
	return groups
}

const (
	maxAmountDigits   = 13
	maxFractionDigits = 2
)

func extractCreate(cmd *BountyCommand, groups []string) bool {
	whole, fraction := groups[0], groups[1]
	if len(whole) > maxAmountDigits {
		return false
	}
	number := whole
	if fraction != "" {
		digits := fraction[1:]
		if digits == "" || len(digits) > maxFractionDigits || strings.ContainsAny(digits, ".,") {
			return false
		}
		number += "." + digits
	}

	amount, err := strconv.ParseFloat(number, 64)
	if err != nil || !(amount > 0) {
		return false
	}
	cmd.Amount = amount
	cmd.Currency = DefaultCurrency
	if groups[2] != "" {
		cmd.Currency = strings.ToUpper(groups[2])
	}
	return true
}

func requirePRNumber(cmd *BountyCommand, groups []string) bool {
	n, ok := positiveInt(groups[0])
	if !ok {
		return false
	}
	cmd.PRNumber = n
	return true
}

func optionalPRNumber(cmd *BountyCommand, groups []string) bool {
	if n, ok := positiveInt(groups[0]); ok {
		cmd.PRNumber = n
	}
	return true
}

func extractSubmitMention(cmd *BountyCommand, groups []string) bool {
	optionalPRNumber(cmd, groups)
	cmd.Description = strings.TrimSpace(groups[1])
	return true
}

func extractMove(cmd *BountyCommand, groups []string) bool {
	n, ok := positiveInt(groups[0])
	if !ok {
		return false
	}
	cmd.TargetIssueNumber = n
	return true
}

// positiveInt parses s as a decimal integer greater than zero.
func positiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
