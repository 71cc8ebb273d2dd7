package realtime

import (
	"context"
	"time"

	"github.com/careerlink/messaging/internal/ratelimit"
)

// LimiterGate adapts a Redis rate limiter to the hub's SendGate interface
// using the standard send rule.
type LimiterGate struct {
	limiter *ratelimit.Limiter
}

// NewLimiterGate wraps a limiter for use as the hub's send gate.
func NewLimiterGate(limiter *ratelimit.Limiter) *LimiterGate {
	return &LimiterGate{limiter: limiter}
}

// AllowSend checks the per-user send budget. The limiter fails open on Redis
// errors, so a Redis outage never blocks sends.
func (g *LimiterGate) AllowSend(ctx context.Context, userID string) (bool, time.Duration) {
	ok, _ := g.limiter.Allow(ctx, userID, ratelimit.RuleSend)
	if ok {
		return true, 0
	}
	retryAfter, _ := g.limiter.RetryAfter(ctx, userID, ratelimit.RuleSend)
	return false, retryAfter
}

// AllowTyping checks the per-user typing budget. Typing indicators over the
// budget are dropped without feedback; there is nothing for the client to
// retry.
func (g *LimiterGate) AllowTyping(ctx context.Context, userID string) bool {
	ok, _ := g.limiter.Allow(ctx, userID, ratelimit.RuleTyping)
	return ok
}
