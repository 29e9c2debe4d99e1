package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/types"
)

// ErrUnknownTool is wrapped by errors for tool ids no provider serves.
var ErrUnknownTool = errors.New("unknown tool")

// Registry manages service discovery and execution
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider // Protected by mu
	tracer    *tracing.Tracer
}

// Provider interface for service implementations
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

// NewRegistry creates a new service registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// WithTracer records a span for every Execute call.
func (r *Registry) WithTracer(tracer *tracing.Tracer) *Registry {
	r.tracer = tracer
	return r
}

// Register adds a service provider
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[def.ID]; exists {
		return fmt.Errorf("service %s already registered", def.ID)
	}
	r.providers[def.ID] = provider
	return nil
}

// Get retrieves a service by ID
func (r *Registry) Get(serviceID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[serviceID]
	return p, ok
}

// List returns all registered services ordered by id.
func (r *Registry) List(category *types.Category) []types.Service {
	r.mu.RLock()
	services := make([]types.Service, 0, len(r.providers))
	for _, p := range r.providers {
		def := p.Definition()
		if category == nil || def.Category == *category {
			services = append(services, def)
		}
	}
	r.mu.RUnlock()

	sort.Slice(services, func(i, j int) bool {
		return services[i].ID < services[j].ID
	})
	return services
}

// Execute runs a service tool. Tool ids take the form "<service>.<tool>".
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	serviceID, _, ok := strings.Cut(toolID, ".")
	if !ok || serviceID == "" {
		return types.Failure("invalid tool ID format"), fmt.Errorf("%w: invalid tool ID format: %s", ErrUnknownTool, toolID)
	}

	provider, ok := r.Get(serviceID)
	if !ok {
		msg := fmt.Sprintf("service not found: %s", serviceID)
		return types.Failure(msg), fmt.Errorf("%w: %s", ErrUnknownTool, msg)
	}

	if params == nil {
		params = map[string]interface{}{}
	}
	if r.tracer == nil {
		return provider.Execute(ctx, toolID, params, appCtx)
	}

	span, ctx := r.tracer.StartSpan(ctx, toolID)
	if appCtx != nil && appCtx.ClientID != "" {
		span.SetTag("client_id", appCtx.ClientID)
	}
	if sessionID, ok := params["session_id"].(string); ok {
		span.SetTag("session_id", sessionID)
	}
	result, err := provider.Execute(ctx, toolID, params, appCtx)
	if err != nil {
		span.SetError(err)
	}
	span.Finish()
	r.tracer.Submit(span)
	return result, err
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var totalTools int
	categories := make(map[string]int)
	for _, p := range r.providers {
		def := p.Definition()
		totalTools += len(def.Tools)
		categories[string(def.Category)]++
	}

	return map[string]interface{}{
		"total_services": len(r.providers),
		"total_tools":    totalTools,
		"categories":     categories,
	}
}
