// Package middleware provides HTTP middleware for authentication and request logging.
package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	pkglog "BountyBot/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// ReasonUnauthorized is returned for a missing or wrong admin token.
const ReasonUnauthorized = "UNAUTHORIZED"

// AdminAuth returns a middleware that requires the admin bearer token.
// The token is read from "Authorization: Bearer <token>" or X-API-Key.
// An empty token disables the check.
//
// Log output example:
//
//	🔓 Admin request authenticated (tok-***) | {"type":"auth","token_masked":"tok-***"}
func AdminAuth(token string, logger *pkglog.LogHelper) middleware.Middleware {
	expected := []byte(token)
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if len(expected) == 0 {
				return handler(ctx, req)
			}

			var (
				presented string
				operation string
			)
			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
				if ht, ok := tr.(http.Transporter); ok {
					presented = extractToken(ht.Request())
				}
			}

			if presented == "" || subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
				logger.Security("rejected admin request",
					"operation", operation,
					"token_present", presented != "",
					"request_id", pkglog.GetRequestID(ctx))
				return nil, errors.Unauthorized(ReasonUnauthorized, "invalid admin token")
			}

			masked := maskToken(presented)
			logger.Auth("Admin request authenticated ("+masked+")",
				"operation", operation,
				"token_masked", masked)
			pkglog.SetMetadata(ctx, "admin", true)

			return handler(ctx, req)
		}
	}
}

func extractToken(req *http.Request) string {
	if authHeader := req.Header.Get("Authorization"); authHeader != "" {
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(req.Header.Get("X-API-Key"))
}

// maskToken keeps the first 4 characters.
// Example: "tok-1234567890" -> "tok-***"
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "***"
}
