package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BountyBot/internal/conf"
	pkglog "BountyBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultGitHubAPIURL = "https://api.github.com"
	githubAPIVersion    = "2022-11-28"
	// maxErrorBody caps how much of an error response is kept in GitHubAPIError.
	maxErrorBody = 1024
)

// GitHubAPIError is a non-2xx response from the GitHub REST API.
type GitHubAPIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *GitHubAPIError) Error() string {
	return fmt.Sprintf("github api: status %d: %s", e.StatusCode, e.Message)
}

// GitHubClient is the small slice of the GitHub REST API the bot needs.
type GitHubClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *pkglog.LogHelper
}

// NewGitHubClient creates a client. Without a token every call is a logged no-op.
func NewGitHubClient(c *conf.GitHub, logger log.Logger) *GitHubClient {
	client := &GitHubClient{
		baseURL:    defaultGitHubAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     pkglog.NewLogHelper(logger),
	}
	if c != nil {
		if c.APIURL != "" {
			client.baseURL = strings.TrimRight(c.APIURL, "/")
		}
		if c.Timeout > 0 {
			client.httpClient.Timeout = c.Timeout
		}
		client.token = c.Token
	}
	return client
}

// Enabled reports whether a token is configured.
func (c *GitHubClient) Enabled() bool {
	return c.token != ""
}

// AddReaction reacts to an issue or pull request comment.
// repository is owner/repo; reaction is one of GitHub's reaction contents, e.g. "eyes".
func (c *GitHubClient) AddReaction(ctx context.Context, repository string, commentID int64, reaction string) error {
	if !c.Enabled() {
		c.logger.Debugw("msg", "github token not configured, skipping reaction",
			"repository", repository, "comment_id", commentID)
		return nil
	}

	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("github: invalid repository %q", repository)
	}

	body, err := json.Marshal(map[string]string{"content": reaction})
	if err != nil {
		return fmt.Errorf("github: failed to marshal reaction: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues/comments/%d/reactions", c.baseURL, owner, repo, commentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("github: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &GitHubAPIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	c.logger.GitHub("reaction added",
		"repository", repository,
		"comment_id", commentID,
		"reaction", reaction,
		"status", resp.StatusCode)
	return nil
}
