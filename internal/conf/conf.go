package conf

import "time"

// Bootstrap is the root configuration.
type Bootstrap struct {
	Server  *Server
	Data    *Data
	Log     *Log
	GitHub  *GitHub
	Breaker *Breaker
}

// Server configures the HTTP transport.
type Server struct {
	HTTP *ServerHTTP
	// AdminToken protects the breaker admin endpoints. Empty disables the check.
	AdminToken string
}

// ServerHTTP configures the HTTP listener.
type ServerHTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Data configures storage backends.
type Data struct {
	Database *DataDatabase
	Redis    *DataRedis
}

// DataDatabase configures the MySQL command audit log. An empty Source disables it.
type DataDatabase struct {
	Driver string
	Source string
}

// DataRedis configures the Redis counter store.
type DataRedis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Log configures pkg/log.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// GitHub configures webhook verification and the reaction client.
type GitHub struct {
	APIURL        string
	Token         string
	WebhookSecret string
	Reaction      string
	Timeout       time.Duration
}

// Breaker configures the circuit breaker registry.
type Breaker struct {
	// KeyPrefix namespaces breaker keys: <prefix>:circuit:<name>:<field>.
	KeyPrefix string
	// Store selects the counter store: "redis" or "memory".
	Store string
	// Services holds per-dependency tuning keyed by breaker name.
	Services map[string]*BreakerService
}

// BreakerService tunes one named circuit breaker.
type BreakerService struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	FailureWindow    time.Duration
	SuccessThreshold int
}
