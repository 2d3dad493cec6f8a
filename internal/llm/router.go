package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// Router dispatches requests to the invoker of the request's provider.
type Router struct {
	invokers map[v1.Provider]Invoker
	logger   *logger.Logger
}

// NewRouter creates an empty router.
func NewRouter(log *logger.Logger) *Router {
	return &Router{
		invokers: make(map[v1.Provider]Invoker),
		logger:   log.WithFields(zap.String("component", "llm-router")),
	}
}

// Register sets the invoker for a provider.
func (r *Router) Register(provider v1.Provider, inv Invoker) {
	r.invokers[provider] = inv
}

// Providers returns the providers with a registered invoker.
func (r *Router) Providers() []v1.Provider {
	out := make([]v1.Provider, 0, len(r.invokers))
	for p := range r.invokers {
		out = append(out, p)
	}
	return out
}

// Invoke implements Invoker. An empty provider is inferred from the model.
func (r *Router) Invoke(ctx context.Context, req Request) (*Response, error) {
	provider := req.Provider
	if provider == "" {
		provider = InferProvider(req.Model)
	}
	inv, ok := r.invokers[provider]
	if !ok {
		return nil, apperrors.UnsupportedConfiguration(
			fmt.Sprintf("no credentials configured for provider %q", provider), nil)
	}

	r.logger.Debug("invoking model",
		zap.String("provider", string(provider)),
		zap.String("model", req.Model),
		zap.String("kind", string(req.Kind)))
	return inv.Invoke(ctx, req)
}
