package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	contextActorKey      ctxKey = "actor"
	contextClientMetaKey ctxKey = "clientMeta"
)

// Actor identifies the authenticated user attached to a request. Role is the
// stored role from the session; client-asserted roles never reach this struct.
type Actor struct {
	ID   int64
	Name string
	Role string
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(contextActorKey).(Actor)
	return actor, ok
}

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

// ClientMeta carries network metadata recorded on audit entries.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

func ClientMetaFromContext(ctx context.Context) ClientMeta {
	if ctx == nil {
		return ClientMeta{}
	}
	if meta, ok := ctx.Value(contextClientMetaKey).(ClientMeta); ok {
		return meta
	}
	return ClientMeta{}
}

func ContextWithClientMeta(ctx context.Context, meta ClientMeta) context.Context {
	return context.WithValue(ctx, contextClientMetaKey, meta)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
