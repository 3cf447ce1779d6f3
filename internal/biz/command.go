package biz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"BountyBot/internal/conf"
	"BountyBot/internal/model"
	"BountyBot/pkg/command"
	pkglog "BountyBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// DefaultReaction acknowledges a recognised command on GitHub.
const DefaultReaction = "eyes"

// ErrInvalidComment is returned for a comment event missing its repository or body.
var ErrInvalidComment = errors.New("invalid comment event")

// CommandAuditor records accepted commands. Implementations must not block.
type CommandAuditor interface {
	Record(ctx context.Context, rec *model.CommandAuditRecord)
}

// CommentReactor acknowledges a comment, e.g. with a GitHub reaction.
type CommentReactor interface {
	AddReaction(ctx context.Context, repository string, commentID int64, reaction string) error
}

// CommandResult is the outcome of reading one comment.
type CommandResult struct {
	// Command is nil when the comment holds no command.
	Command *command.BountyCommand `json:"command"`
	// Remainder is the comment with the command text removed.
	Remainder string `json:"remainder"`
	// Acknowledged reports whether the comment was reacted to.
	Acknowledged bool `json:"acknowledged"`
}

// CommandUsecase turns comments into bot commands. It stops at recognising the command:
// acting on bounties belongs to the consumers of the audit log.
type CommandUsecase struct {
	auditor  CommandAuditor
	reactor  CommentReactor
	breaker  *CircuitBreaker
	reaction string
	logger   *pkglog.LogHelper
}

// NewCommandUsecase creates the use case. GitHub calls go through the "github" breaker.
func NewCommandUsecase(registry *BreakerRegistry, auditor CommandAuditor, reactor CommentReactor, c *conf.GitHub, logger log.Logger) *CommandUsecase {
	reaction := DefaultReaction
	if c != nil && c.Reaction != "" {
		reaction = c.Reaction
	}
	return &CommandUsecase{
		auditor:  auditor,
		reactor:  reactor,
		breaker:  registry.Get(BreakerGitHub),
		reaction: reaction,
		logger:   pkglog.NewLogHelper(logger),
	}
}

// Parse reads body without side effects.
func (uc *CommandUsecase) Parse(body string) *CommandResult {
	cmd := command.Parse(body)
	return &CommandResult{
		Command:   cmd,
		Remainder: command.Strip(body, cmd),
	}
}

// HandleComment parses the comment, audits a recognised command and acknowledges it.
// A failing or rejected acknowledgement is logged and reported through Acknowledged;
// it never fails the call.
func (uc *CommandUsecase) HandleComment(ctx context.Context, ev *model.CommentEvent) (*CommandResult, error) {
	if ev == nil || ev.Repository == "" {
		return nil, ErrInvalidComment
	}

	result := uc.Parse(ev.Body)
	if result.Command == nil {
		return result, nil
	}
	cmd := result.Command

	uc.logger.CommandWithContext(ctx, "command recognised",
		"command", cmd.Type.String(),
		"issue_number", ev.IssueNumber,
		"comment_id", ev.CommentID)

	if uc.auditor != nil {
		payload, err := json.Marshal(cmd)
		if err != nil {
			return nil, err
		}
		uc.auditor.Record(ctx, &model.CommandAuditRecord{
			DeliveryID:    ev.DeliveryID,
			Repository:    ev.Repository,
			IssueNumber:   ev.IssueNumber,
			CommentID:     ev.CommentID,
			Author:        ev.Author,
			CommandType:   cmd.Type.String(),
			IsPullRequest: ev.IsPullRequest,
			Payload:       string(payload),
			ReceivedAt:    time.Now().UTC(),
		})
	}

	if uc.reactor == nil || ev.CommentID == 0 {
		return result, nil
	}

	acknowledged, err := CallWithFallback(ctx, uc.breaker,
		func(ctx context.Context) (bool, error) {
			if err := uc.reactor.AddReaction(ctx, ev.Repository, ev.CommentID, uc.reaction); err != nil {
				return false, err
			}
			return true, nil
		},
		func(ctx context.Context) (bool, error) {
			uc.logger.Warnw("msg", "github circuit open, skipping acknowledgement",
				"repository", ev.Repository,
				"comment_id", ev.CommentID)
			return false, nil
		},
	)
	if err != nil {
		uc.logger.Warnw("msg", "failed to acknowledge command",
			"repository", ev.Repository,
			"comment_id", ev.CommentID,
			"error", err)
	}
	result.Acknowledged = acknowledged
	return result, nil
}
