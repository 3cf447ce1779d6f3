package server

import (
	"BountyBot/internal/conf"
	"BountyBot/internal/server/middleware"
	"BountyBot/internal/service"
	pkglog "BountyBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, commands *service.CommandService, breakers *service.BreakerService, logger log.Logger) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var adminToken string
	if c != nil {
		adminToken = c.AdminToken
	}
	if adminToken == "" {
		logHelper.Security("admin token not configured, breaker endpoints are unauthenticated")
	}

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper),
			// Only the breaker admin endpoints need the admin token
			selector.Server(middleware.AdminAuth(adminToken, logHelper)).
				Prefix(service.BreakerOperationPrefix).
				Build(),
		),
	}
	if c != nil && c.HTTP != nil {
		if c.HTTP.Network != "" {
			opts = append(opts, http.Network(c.HTTP.Network))
		}
		if c.HTTP.Addr != "" {
			opts = append(opts, http.Address(c.HTTP.Addr))
		}
		if c.HTTP.Timeout > 0 {
			opts = append(opts, http.Timeout(c.HTTP.Timeout))
		}
	}
	srv := http.NewServer(opts...)

	service.RegisterCommandServiceHTTPServer(srv, commands)
	service.RegisterBreakerServiceHTTPServer(srv, breakers)

	return srv
}
