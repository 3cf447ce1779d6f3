package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// slowRequestThresholdMs triggers a slow_request warning in RequestWithContext.
const slowRequestThresholdMs = 1000

// LogHelper extends the Kratos log.Helper with typed entries.
// Each method adds a "type" field that EmojiConsoleEncoder maps to an emoji.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper creates a LogHelper.
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func withType(msg, logType string, kvs []interface{}) []interface{} {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	return append(allKvs, "type", logType)
}

// Command logs a parsed bot command (📝).
func (h *LogHelper) Command(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "command", kvs)...)
}

// Webhook logs webhook intake (🪝).
func (h *LogHelper) Webhook(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "webhook", kvs)...)
}

// Breaker logs a circuit breaker state change (🔌).
func (h *LogHelper) Breaker(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "breaker", kvs)...)
}

// Auth logs admin authentication (🔓).
func (h *LogHelper) Auth(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "auth", kvs)...)
}

// Security logs a rejected signature or token (🔒).
func (h *LogHelper) Security(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "security", kvs)...)
}

// Success logs a completed operation (✅).
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "success", kvs)...)
}

// Database logs audit log writes (💾).
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "database", kvs)...)
}

// Redis logs counter store activity (📦).
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "redis", kvs)...)
}

// GitHub logs calls to the GitHub API (🐙).
func (h *LogHelper) GitHub(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "github", kvs)...)
}

// Scheduler logs cron jobs (🎯).
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "scheduler", kvs)...)
}

// Startup logs service startup (🚀).
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "startup", kvs)...)
}

// Audit logs an audit record (📋).
func (h *LogHelper) Audit(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "audit", kvs)...)
}

// Request logs an HTTP request; the emoji follows the status code.
func (h *LogHelper) Request(method, url string, status int, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("%s %s - %d (%s)", method, url, status, formatDuration(durationMs))
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)
}

// BreakerStats logs a periodic snapshot of one breaker (📊).
func (h *LogHelper) BreakerStats(name, state string, failures, successes int64, kvs ...interface{}) {
	msg := fmt.Sprintf("Breaker %s | State: %s, Failures: %d, Successes: %d", name, state, failures, successes)
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"breaker", name,
		"state", state,
		"failures", failures,
		"successes", successes,
		"type", "breaker_stats",
	)
	h.Infow(allKvs...)
}

// ========== Context-aware helpers ==========

// SlowRequest warns about a request that exceeded threshold milliseconds (🐌).
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
		"type", "slow_request",
	)
	h.Warnw(allKvs...)
}

// RequestWithContext logs an HTTP request with the tracing fields from ctx
// and emits SlowRequest past the threshold.
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%s) | RequestID: %s",
		method, url, status, formatDuration(durationMs), reqCtx.RequestID)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"request_id", reqCtx.RequestID,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	if reqCtx.DeliveryID != "" {
		allKvs = append(allKvs,
			"delivery_id", reqCtx.DeliveryID,
			"repository", reqCtx.Repository,
			"actor", reqCtx.Actor,
		)
	}
	h.Infow(allKvs...)

	if durationMs > slowRequestThresholdMs {
		h.SlowRequest(ctx, method, url, durationMs, slowRequestThresholdMs)
	}
}

// CommandWithContext logs a parsed command with the webhook delivery from ctx.
func (h *LogHelper) CommandWithContext(ctx context.Context, msg string, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	allKvs := append([]interface{}{"msg", fmt.Sprintf("[%s] %s", reqCtx.RequestID, msg)}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"delivery_id", reqCtx.DeliveryID,
		"repository", reqCtx.Repository,
		"actor", reqCtx.Actor,
		"type", "command",
	)
	h.Infow(allKvs...)
}
