// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// Counter store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Names of the pre-configured breakers.
const (
	BreakerPayments = "payments"
	BreakerGitHub   = "github"
	BreakerEmail    = "email"
	BreakerBilling  = "billing"
)

// DefaultBreakerServices returns the tuning of the pre-configured dependencies, keyed by
// breaker name. GitHub is the most lenient: it fails more often and instant failover matters less.
func DefaultBreakerServices() map[string]BreakerService {
	return map[string]BreakerService{
		BreakerPayments: {FailureThreshold: 5, ResetTimeout: 30 * time.Second, FailureWindow: 60 * time.Second, SuccessThreshold: 2},
		BreakerGitHub:   {FailureThreshold: 10, ResetTimeout: 60 * time.Second, FailureWindow: 120 * time.Second, SuccessThreshold: 2},
		BreakerEmail:    {FailureThreshold: 5, ResetTimeout: 60 * time.Second, FailureWindow: 60 * time.Second, SuccessThreshold: 1},
		BreakerBilling:  {FailureThreshold: 3, ResetTimeout: 30 * time.Second, FailureWindow: 60 * time.Second, SuccessThreshold: 2},
	}
}

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with BOUNTYBOT_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Secrets may also be given through their conventional names:
//   - GITHUB_TOKEN: token for the reaction client
//   - GITHUB_WEBHOOK_SECRET: HMAC secret for webhook deliveries
//   - ADMIN_TOKEN: bearer token for the breaker admin endpoints
//   - MYSQL_DSN: command audit log database
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BOUNTYBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "BOUNTYBOT_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "BOUNTYBOT_DATA_REDIS_ADDR")
	_ = v.BindEnv("github.token", "GITHUB_TOKEN", "BOUNTYBOT_GITHUB_TOKEN")
	_ = v.BindEnv("github.webhook_secret", "GITHUB_WEBHOOK_SECRET", "BOUNTYBOT_GITHUB_WEBHOOK_SECRET")
	_ = v.BindEnv("server.admin_token", "ADMIN_TOKEN", "BOUNTYBOT_SERVER_ADMIN_TOKEN")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			HTTP: &ServerHTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
			AdminToken: v.GetString("server.admin_token"),
		},
		Data: &Data{
			Database: &DataDatabase{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &DataRedis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
		GitHub: &GitHub{
			APIURL:        v.GetString("github.api_url"),
			Token:         v.GetString("github.token"),
			WebhookSecret: v.GetString("github.webhook_secret"),
			Reaction:      v.GetString("github.reaction"),
			Timeout:       v.GetDuration("github.timeout"),
		},
		Breaker: &Breaker{
			KeyPrefix: v.GetString("breaker.key_prefix"),
			Store:     v.GetString("breaker.store"),
			Services:  loadBreakerServices(v),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 10*time.Second)

	v.SetDefault("data.database.driver", "mysql")
	// data.database.source is optional; the audit log only logs without it

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.reaction", "eyes")
	v.SetDefault("github.timeout", 10*time.Second)

	v.SetDefault("breaker.key_prefix", "bountybot")
	v.SetDefault("breaker.store", StoreRedis)
	for name, svc := range DefaultBreakerServices() {
		prefix := "breaker.services." + name + "."
		v.SetDefault(prefix+"failure_threshold", svc.FailureThreshold)
		v.SetDefault(prefix+"reset_timeout", svc.ResetTimeout)
		v.SetDefault(prefix+"failure_window", svc.FailureWindow)
		v.SetDefault(prefix+"success_threshold", svc.SuccessThreshold)
	}
}

// loadBreakerServices reads the pre-configured breakers plus any extra ones declared
// under breaker.services in the config file.
func loadBreakerServices(v *viper.Viper) map[string]*BreakerService {
	defaults := DefaultBreakerServices()
	names := make(map[string]struct{}, len(defaults))
	for name := range defaults {
		names[name] = struct{}{}
	}
	for name := range v.GetStringMap("breaker.services") {
		names[name] = struct{}{}
	}

	services := make(map[string]*BreakerService, len(names))
	for name := range names {
		prefix := "breaker.services." + name + "."
		services[name] = &BreakerService{
			FailureThreshold: v.GetInt(prefix + "failure_threshold"),
			ResetTimeout:     v.GetDuration(prefix + "reset_timeout"),
			FailureWindow:    v.GetDuration(prefix + "failure_window"),
			SuccessThreshold: v.GetInt(prefix + "success_threshold"),
		}
	}
	return services
}

// Validate checks the configuration and returns every invalid field at once.
func Validate(bc *Bootstrap) error {
	if bc == nil {
		return fmt.Errorf("configuration is nil")
	}

	errs := validation.Errors{}

	if bc.Log == nil {
		errs["log"] = validation.ErrRequired
	} else {
		errs["log"] = validation.ValidateStruct(bc.Log,
			validation.Field(&bc.Log.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
			validation.Field(&bc.Log.Format, validation.Required, validation.In("json", "console")),
		)
	}

	if bc.Server == nil || bc.Server.HTTP == nil {
		errs["server.http"] = validation.ErrRequired
	} else {
		errs["server.http"] = validation.ValidateStruct(bc.Server.HTTP,
			validation.Field(&bc.Server.HTTP.Addr, validation.Required),
		)
	}

	if bc.Breaker == nil {
		errs["breaker"] = validation.ErrRequired
	} else {
		errs["breaker"] = validation.ValidateStruct(bc.Breaker,
			validation.Field(&bc.Breaker.KeyPrefix, validation.Required),
			validation.Field(&bc.Breaker.Store, validation.Required, validation.In(StoreRedis, StoreMemory)),
		)
		for _, name := range sortedNames(bc.Breaker.Services) {
			errs["breaker.services."+name] = validateBreakerService(bc.Breaker.Services[name])
		}
	}

	if err := errs.Filter(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func validateBreakerService(svc *BreakerService) error {
	if svc == nil {
		return validation.ErrRequired
	}
	return validation.ValidateStruct(svc,
		validation.Field(&svc.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&svc.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&svc.ResetTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&svc.FailureWindow, validation.Required, validation.Min(time.Second)),
	)
}

func sortedNames(services map[string]*BreakerService) []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
