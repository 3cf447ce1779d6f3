package command

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultSubmissionKeyword is the keyword used when none is given.
const DefaultSubmissionKeyword = BotMention + " submit"

// DefaultCurrency is used when a create command names no currency.
const DefaultCurrency = "USD"

// MaxBountyAmount is the largest amount accepted by IsValidBountyAmount.
const MaxBountyAmount = 1_000_000

var supportedCurrencies = []string{"USD", "EUR", "GBP"}

var (
	issueURLPattern       = regexp.MustCompile(`github\.com/([^/\s]+)/([^/\s]+)/issues/(\d+)`)
	pullRequestURLPattern = regexp.MustCompile(`github\.com/([^/\s]+)/([^/\s]+)/pull/(\d+)`)

	defaultKeywordPattern            = compileKeyword(DefaultSubmissionKeyword, "")
	defaultKeywordDescriptionPattern = compileKeyword(DefaultSubmissionKeyword, descriptionSuffix)
)

const descriptionSuffix = `([^\r\n]*)`

// Currencies returns the supported currency codes.
func Currencies() []string {
	return append([]string(nil), supportedCurrencies...)
}

// ContainsSubmissionKeyword reports whether text contains keyword, ignoring case.
// An empty keyword selects DefaultSubmissionKeyword.
func ContainsSubmissionKeyword(text, keyword string) bool {
	return keywordPattern(keyword, false).MatchString(text)
}

// ExtractSubmissionDescription returns the trimmed text that follows keyword on the same
// line, or "" when the keyword is absent. An empty keyword selects DefaultSubmissionKeyword.
func ExtractSubmissionDescription(text, keyword string) string {
	m := keywordPattern(keyword, true).FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// keywordPattern returns the precompiled pattern for the default keyword and compiles
// custom keywords on demand. With description set, group 1 captures the rest of the line.
func keywordPattern(keyword string, description bool) *regexp.Regexp {
	if keyword == "" || keyword == DefaultSubmissionKeyword {
		if description {
			return defaultKeywordDescriptionPattern
		}
		return defaultKeywordPattern
	}
	if description {
		return compileKeyword(keyword, descriptionSuffix)
	}
	return compileKeyword(keyword, "")
}

// compileKeyword matches keyword literally and case-insensitively, followed by suffix.
func compileKeyword(keyword, suffix string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword) + suffix)
}

// IsValidBountyAmount reports whether amount is finite, positive and at most MaxBountyAmount.
func IsValidBountyAmount(amount float64) bool {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false
	}
	return amount > 0 && amount <= MaxBountyAmount
}

// IsValidCurrency reports whether code is a supported currency, ignoring case.
func IsValidCurrency(code string) bool {
	upper := strings.ToUpper(code)
	for _, c := range supportedCurrencies {
		if c == upper {
			return true
		}
	}
	return false
}

// ParseIssueURL extracts owner, repository and issue number from a GitHub issue URL.
func ParseIssueURL(url string) *IssueRef {
	m := issueURLPattern.FindStringSubmatch(url)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return nil
	}
	return &IssueRef{Owner: m[1], Repo: m[2], IssueNumber: n}
}

// ParsePullRequestURL extracts owner, repository and PR number from a GitHub pull request URL.
func ParsePullRequestURL(url string) *PullRequestRef {
	m := pullRequestURLPattern.FindStringSubmatch(url)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return nil
	}
	return &PullRequestRef{Owner: m[1], Repo: m[2], PRNumber: n}
}
