package service

import (
	"context"
	"io"

	_ "github.com/go-kratos/kratos/v2/encoding/json"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// Operation names, used by middleware selectors.
const (
	OperationCommandParseCommand  = "/bountybot.v1.CommandService/ParseCommand"
	OperationCommandGitHubWebhook = "/bountybot.v1.CommandService/GitHubWebhook"
	OperationBreakerListBreakers  = "/bountybot.v1.BreakerService/ListBreakers"
	OperationBreakerGetBreaker    = "/bountybot.v1.BreakerService/GetBreaker"
	OperationBreakerResetBreaker  = "/bountybot.v1.BreakerService/ResetBreaker"
)

// BreakerOperationPrefix matches every admin operation.
const BreakerOperationPrefix = "/bountybot.v1.BreakerService/"

// maxWebhookPayload bounds a delivery body; GitHub caps payloads at 25MB.
const maxWebhookPayload = 25 << 20

// RegisterCommandServiceHTTPServer registers the command routes on s.
func RegisterCommandServiceHTTPServer(s *http.Server, srv *CommandService) {
	r := s.Route("/")
	r.POST("/v1/commands/parse", _CommandService_ParseCommand_HTTP_Handler(srv))
	r.POST("/v1/webhooks/github", _CommandService_GitHubWebhook_HTTP_Handler(srv))
}

// RegisterBreakerServiceHTTPServer registers the breaker admin routes on s.
func RegisterBreakerServiceHTTPServer(s *http.Server, srv *BreakerService) {
	r := s.Route("/")
	r.GET("/v1/breakers", _BreakerService_ListBreakers_HTTP_Handler(srv))
	r.GET("/v1/breakers/{name}", _BreakerService_GetBreaker_HTTP_Handler(srv))
	r.POST("/v1/breakers/{name}/reset", _BreakerService_ResetBreaker_HTTP_Handler(srv))
}

func _CommandService_ParseCommand_HTTP_Handler(srv *CommandService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ParseRequest
		if err := ctx.Bind(&in); err != nil {
			return kerrors.BadRequest(ReasonBadRequest, err.Error())
		}
		http.SetOperation(ctx, OperationCommandParseCommand)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ParseCommand(ctx, req.(*ParseRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func _CommandService_GitHubWebhook_HTTP_Handler(srv *CommandService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookPayload))
		if err != nil {
			return kerrors.BadRequest(ReasonBadRequest, err.Error())
		}
		in := WebhookRequest{
			Event:      ctx.Header().Get("X-GitHub-Event"),
			DeliveryID: ctx.Header().Get("X-GitHub-Delivery"),
			Signature:  ctx.Header().Get("X-Hub-Signature-256"),
			Payload:    payload,
		}
		http.SetOperation(ctx, OperationCommandGitHubWebhook)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GitHubWebhook(ctx, req.(*WebhookRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func _BreakerService_ListBreakers_HTTP_Handler(srv *BreakerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in BreakerRequest
		http.SetOperation(ctx, OperationBreakerListBreakers)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListBreakers(ctx, req.(*BreakerRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func _BreakerService_GetBreaker_HTTP_Handler(srv *BreakerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := BreakerRequest{Name: ctx.Vars().Get("name")}
		http.SetOperation(ctx, OperationBreakerGetBreaker)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetBreaker(ctx, req.(*BreakerRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func _BreakerService_ResetBreaker_HTTP_Handler(srv *BreakerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := BreakerRequest{Name: ctx.Vars().Get("name")}
		http.SetOperation(ctx, OperationBreakerResetBreaker)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ResetBreaker(ctx, req.(*BreakerRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
