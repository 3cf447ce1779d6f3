package log

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type contextKey string

const requestContextKey contextKey = "bountybot_request_context"

// RequestContext carries tracing information for one inbound request.
type RequestContext struct {
	RequestID  string // short random id, e.g. mgrn0zfqda
	DeliveryID string // GitHub X-GitHub-Delivery, when the request is a webhook
	Repository string // owner/repo the comment belongs to
	Actor      string // GitHub login of the comment author
	StartTime  time.Time
	Metadata   map[string]interface{}
}

var (
	randSource  = rand.NewSource(time.Now().UnixNano())
	randMutex   sync.Mutex
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID returns a 10 character base36 id.
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext stores a fresh RequestContext in ctx.
// Usually called from the logging middleware at the start of a request.
func WithRequestContext(ctx context.Context, requestID string) context.Context {
	reqCtx := &RequestContext{
		RequestID: requestID,
		StartTime: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// GetRequestContext returns the RequestContext stored in ctx,
// or an empty one with RequestID "unknown".
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{
		RequestID: "unknown",
		Metadata:  make(map[string]interface{}),
	}
}

// GetRequestID extracts the request id from ctx.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// SetDelivery records the webhook delivery being processed on ctx.
// It is a no-op when ctx carries no RequestContext.
func SetDelivery(ctx context.Context, deliveryID, repository, actor string) {
	if ctx == nil {
		return
	}
	reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext)
	if !ok {
		return
	}
	reqCtx.DeliveryID = deliveryID
	reqCtx.Repository = repository
	reqCtx.Actor = actor
}

// SetMetadata attaches an extra tracing value to the request.
func SetMetadata(ctx context.Context, key string, value interface{}) {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.Metadata == nil {
		reqCtx.Metadata = make(map[string]interface{})
	}
	reqCtx.Metadata[key] = value
}

// GetMetadata reads a value set with SetMetadata.
func GetMetadata(ctx context.Context, key string) (interface{}, bool) {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.Metadata == nil {
		return nil, false
	}
	value, ok := reqCtx.Metadata[key]
	return value, ok
}

// GetElapsedTime returns milliseconds since the request started.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
