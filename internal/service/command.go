package service

import (
	"context"
	"encoding/json"
	"strings"

	"BountyBot/internal/biz"
	"BountyBot/internal/conf"
	"BountyBot/internal/model"
	"BountyBot/pkg/crypto"
	pkglog "BountyBot/pkg/log"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// GitHub webhook event names handled by the gateway.
const (
	EventIssueComment = "issue_comment"
	EventPullRequest  = "pull_request"
	EventPing         = "ping"
)

// ParseRequest is the body of POST /v1/commands/parse.
type ParseRequest struct {
	Body string `json:"body"`
}

// WebhookRequest carries one GitHub delivery. Payload is the raw body the signature covers.
type WebhookRequest struct {
	Event      string
	DeliveryID string
	Signature  string
	Payload    []byte
}

// WebhookReply acknowledges a delivery.
type WebhookReply struct {
	DeliveryID string             `json:"delivery_id"`
	Event      string             `json:"event"`
	Handled    bool               `json:"handled"`
	Result     *biz.CommandResult `json:"result,omitempty"`
}

type githubUser struct {
	Login string `json:"login"`
}

type githubRepository struct {
	FullName string `json:"full_name"`
}

type issueCommentPayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number      int             `json:"number"`
		PullRequest json.RawMessage `json:"pull_request"`
	} `json:"issue"`
	Comment struct {
		ID   int64      `json:"id"`
		Body string     `json:"body"`
		User githubUser `json:"user"`
	} `json:"comment"`
	Repository githubRepository `json:"repository"`
}

type pullRequestPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Body string     `json:"body"`
		User githubUser `json:"user"`
	} `json:"pull_request"`
	Repository githubRepository `json:"repository"`
}

// CommandService reads bot commands from GitHub deliveries and ad-hoc text.
type CommandService struct {
	uc     *biz.CommandUsecase
	secret []byte
	logger *pkglog.LogHelper
}

// NewCommandService creates the service. Deliveries are only verified when a webhook secret is set.
func NewCommandService(uc *biz.CommandUsecase, c *conf.GitHub, logger log.Logger) *CommandService {
	s := &CommandService{
		uc:     uc,
		logger: pkglog.NewLogHelper(logger),
	}
	if c != nil && c.WebhookSecret != "" {
		s.secret = []byte(c.WebhookSecret)
	}
	return s
}

// ParseCommand parses req.Body without side effects.
func (s *CommandService) ParseCommand(ctx context.Context, req *ParseRequest) (*biz.CommandResult, error) {
	return s.uc.Parse(req.Body), nil
}

// GitHubWebhook verifies and dispatches one delivery. Events other than comments and pull
// requests are acknowledged without processing.
func (s *CommandService) GitHubWebhook(ctx context.Context, req *WebhookRequest) (*WebhookReply, error) {
	if s.secret != nil {
		if err := crypto.VerifySignature(s.secret, req.Payload, req.Signature); err != nil {
			s.logger.Security("rejected webhook delivery",
				"delivery_id", req.DeliveryID,
				"event", req.Event,
				"error", err)
			return nil, kerrors.Unauthorized(ReasonInvalidSignature, err.Error())
		}
	}

	deliveryID := req.DeliveryID
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	reply := &WebhookReply{DeliveryID: deliveryID, Event: req.Event}

	ev, err := decodeCommentEvent(req.Event, req.Payload)
	if err != nil {
		return nil, kerrors.BadRequest(ReasonBadRequest, err.Error())
	}
	if ev == nil {
		s.logger.Webhook("ignored webhook delivery",
			"delivery_id", deliveryID,
			"event", req.Event)
		return reply, nil
	}
	ev.DeliveryID = deliveryID

	pkglog.SetDelivery(ctx, deliveryID, ev.Repository, ev.Author)
	s.logger.Webhook("received webhook delivery",
		"delivery_id", deliveryID,
		"event", req.Event,
		"repository", ev.Repository,
		"issue_number", ev.IssueNumber)

	result, err := s.uc.HandleComment(ctx, ev)
	if err != nil {
		return nil, toHTTPError(err)
	}
	reply.Handled = true
	reply.Result = result
	return reply, nil
}

// decodeCommentEvent extracts the commented text from a delivery.
// It returns nil for events and actions that carry no new text.
func decodeCommentEvent(event string, payload []byte) (*model.CommentEvent, error) {
	switch strings.ToLower(event) {
	case EventIssueComment:
		var p issueCommentPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		if p.Action != "created" && p.Action != "edited" {
			return nil, nil
		}
		return &model.CommentEvent{
			Repository:    p.Repository.FullName,
			IssueNumber:   p.Issue.Number,
			CommentID:     p.Comment.ID,
			Author:        p.Comment.User.Login,
			Body:          p.Comment.Body,
			IsPullRequest: len(p.Issue.PullRequest) > 0 && string(p.Issue.PullRequest) != "null",
		}, nil
	case EventPullRequest:
		var p pullRequestPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		if p.Action != "opened" && p.Action != "edited" {
			return nil, nil
		}
		return &model.CommentEvent{
			Repository:    p.Repository.FullName,
			IssueNumber:   p.Number,
			Author:        p.PullRequest.User.Login,
			Body:          p.PullRequest.Body,
			IsPullRequest: true,
		}, nil
	default:
		return nil, nil
	}
}
