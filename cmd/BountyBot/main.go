// Package main is the entry point of the BountyBot command gateway.
// It initializes the Kratos application with the HTTP server and the breaker stats job.
package main

import (
	"context"
	"flag"
	"os"

	"BountyBot/internal/biz"
	"BountyBot/internal/conf"
	zapLogger "BountyBot/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "BountyBot"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, registry *biz.BreakerRegistry) *kratos.App {
	reporter := NewBreakerStatsCron(registry, logger)

	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
		),
		kratos.AfterStart(func(context.Context) error {
			if reporter != nil {
				reporter.Start()
			}
			return nil
		}),
		kratos.BeforeStop(func(context.Context) error {
			if reporter != nil {
				<-reporter.Stop().Done()
			}
			return nil
		}),
	)
}

func main() {
	flag.Parse()

	// Load configuration using Viper with environment variable support
	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		// Use fallback logger before Zap is initialized
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	logger := zapLogger.NewKratosAdapter(zapLog)
	logger = log.With(logger,
		"service.id", id,
		"service.version", Version,
	)

	zapLogger.NewLogHelper(logger).Startup(Name+" starting",
		"http.addr", bc.Server.HTTP.Addr,
		"breaker.store", bc.Breaker.Store,
		"breaker.key_prefix", bc.Breaker.KeyPrefix,
		"breakers", len(bc.Breaker.Services),
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.GitHub, bc.Breaker, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
