package system

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/service"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/types"
)

// SessionCounter reports how many sessions are live.
type SessionCounter interface {
	Count() int
}

// Provider reports daemon health and runtime information.
type Provider struct {
	sessions  SessionCounter
	version   string
	startTime time.Time
}

// NewProvider creates a system provider
func NewProvider(sessions SessionCounter, version string) *Provider {
	return &Provider{
		sessions:  sessions,
		version:   version,
		startTime: time.Now(),
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "system",
		Name:        "System Service",
		Description: "Daemon information and liveness checks",
		Category:    types.CategorySystem,
		Capabilities: []string{
			"info",
			"monitoring",
		},
		Tools: []types.Tool{
			{
				ID:          "system.info",
				Name:        "System Info",
				Description: "Get daemon and runtime information",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "system.time",
				Name:        "Current Time",
				Description: "Get current server time",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "system.ping",
				Name:        "Ping",
				Description: "Test service availability",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute runs a system operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "system.info":
		return p.info(), nil
	case "system.time":
		return p.currentTime(), nil
	case "system.ping":
		return p.ping(appCtx), nil
	default:
		return nil, fmt.Errorf("%w: %s", service.ErrUnknownTool, toolID)
	}
}

func (p *Provider) info() *types.Result {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return success(map[string]interface{}{
		"version":         p.version,
		"go_version":      runtime.Version(),
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
		"cpus":            runtime.NumCPU(),
		"goroutines":      runtime.NumGoroutine(),
		"memory_alloc":    m.Alloc / 1024 / 1024, // MB
		"memory_sys":      m.Sys / 1024 / 1024,   // MB
		"uptime_seconds":  time.Since(p.startTime).Seconds(),
		"active_sessions": p.sessions.Count(),
	})
}

func (p *Provider) currentTime() *types.Result {
	now := time.Now()
	return success(map[string]interface{}{
		"timestamp": now.Unix(),
		"iso":       now.Format(time.RFC3339),
		"unix_ms":   now.UnixMilli(),
	})
}

func (p *Provider) ping(appCtx *types.Context) *types.Result {
	data := map[string]interface{}{
		"pong":      true,
		"timestamp": time.Now().Unix(),
	}
	if appCtx != nil && appCtx.ClientID != "" {
		data["client_id"] = appCtx.ClientID
	}
	return success(data)
}

func success(data map[string]interface{}) *types.Result {
	return &types.Result{Success: true, Data: data}
}
