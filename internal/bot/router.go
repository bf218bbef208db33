package bot

import (
	"context"

	"kiri-bot/internal/handler"
)

// HandlerFunc handles one interaction on any platform.
type HandlerFunc func(ctx context.Context, t handler.Transport, in *handler.Interaction) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// Router runs interactions through the middleware chain into the handler.
// Middleware registered first runs outermost.
type Router struct {
	handler    HandlerFunc
	middleware []MiddlewareFunc
}

// NewRouter creates a Router for h.
func NewRouter(h HandlerFunc) *Router {
	return &Router{handler: h}
}

// Use appends middleware to the chain.
func (r *Router) Use(mw ...MiddlewareFunc) {
	r.middleware = append(r.middleware, mw...)
}

// Dispatch handles an interaction.
func (r *Router) Dispatch(ctx context.Context, t handler.Transport, in *handler.Interaction) error {
	h := r.handler
	for i := len(r.middleware) - 1; i >= 0; i-- {
		h = r.middleware[i](h)
	}
	return h(ctx, t, in)
}
