package terminal

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/service"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/types"
)

// ErrInvalidArgument is wrapped by errors for missing or malformed params.
var ErrInvalidArgument = errors.New("invalid argument")

// Provider exposes a terminal.Registry as service tools.
type Provider struct {
	sessions *terminal.Registry
}

// NewProvider creates a provider backed by sessions.
func NewProvider(sessions *terminal.Registry) *Provider {
	return &Provider{sessions: sessions}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Service",
		Description: "Interactive shell sessions on pseudo-terminals with streamed output",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"shell",
			"interactive",
			"sessions",
			"resize",
			"stream",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "terminal.create_session":
		return p.createSession(ctx, params)
	case "terminal.write":
		return p.write(params)
	case "terminal.resize":
		return p.resize(params)
	case "terminal.kill":
		return p.kill(params)
	case "terminal.list_sessions":
		return p.listSessions()
	case "terminal.get_session":
		return p.getSession(params)
	default:
		return nil, fmt.Errorf("%w: %s", service.ErrUnknownTool, toolID)
	}
}

func sessionIDParam() types.Parameter {
	return types.Parameter{
		Name:        "session_id",
		Type:        "string",
		Description: "Terminal session ID",
		Required:    true,
	}
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "terminal.create_session",
			Name:        "Create Terminal Session",
			Description: "Spawn a shell on a new PTY; its output is pushed as pty-output events",
			Parameters: []types.Parameter{
				{Name: "shell", Type: "string", Description: "Shell to run. Defaults to the configured shell, then $SHELL"},
				{Name: "args", Type: "array", Description: "Arguments passed to the shell"},
				{Name: "working_dir", Type: "string", Description: "Initial working directory. Defaults to the server's"},
				{Name: "cols", Type: "number", Description: "Terminal width in columns. Defaults to 80"},
				{Name: "rows", Type: "number", Description: "Terminal height in rows. Defaults to 24"},
				{Name: "env", Type: "object", Description: "Extra environment variables"},
			},
			Returns: "session_info",
		},
		{
			ID:          "terminal.write",
			Name:        "Write to Terminal",
			Description: "Send input to a terminal session",
			Parameters: []types.Parameter{
				sessionIDParam(),
				{Name: "input", Type: "string", Description: "Input to send to terminal", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change terminal dimensions",
			Parameters: []types.Parameter{
				sessionIDParam(),
				{Name: "cols", Type: "number", Description: "New width in columns", Required: true},
				{Name: "rows", Type: "number", Description: "New height in rows", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.kill",
			Name:        "Kill Terminal Session",
			Description: "Terminate a terminal session",
			Parameters:  []types.Parameter{sessionIDParam()},
			Returns:     "success",
		},
		{
			ID:          "terminal.list_sessions",
			Name:        "List Terminal Sessions",
			Description: "List all active terminal sessions",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
		{
			ID:          "terminal.get_session",
			Name:        "Get Session Info",
			Description: "Get information about a terminal session",
			Parameters:  []types.Parameter{sessionIDParam()},
			Returns:     "session_info",
		},
	}
}

func (p *Provider) createSession(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	opts := terminal.CreateOptions{}
	opts.Shell, _ = params["shell"].(string)
	opts.WorkingDir, _ = params["working_dir"].(string)

	var err error
	if opts.Cols, err = optionalDimension(params, "cols"); err != nil {
		return nil, err
	}
	if opts.Rows, err = optionalDimension(params, "rows"); err != nil {
		return nil, err
	}

	if opts.Args, err = optionalStrings(params, "args"); err != nil {
		return nil, err
	}
	if opts.Env, err = optionalStringMap(params, "env"); err != nil {
		return nil, err
	}

	info, err := p.sessions.Create(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    sessionData(*info),
	}, nil
}

func (p *Provider) write(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}

	input, ok := params["input"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidArgument)
	}

	if err := p.sessions.Write(sessionID, []byte(input)); err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"success": true, "bytes": len(input)},
	}, nil
}

func (p *Provider) resize(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}

	cols, err := requireDimension(params, "cols")
	if err != nil {
		return nil, err
	}
	rows, err := requireDimension(params, "rows")
	if err != nil {
		return nil, err
	}

	if err := p.sessions.Resize(sessionID, cols, rows); err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"success": true, "cols": cols, "rows": rows},
	}, nil
}

func (p *Provider) kill(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}

	if err := p.sessions.Kill(sessionID); err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"success": true},
	}, nil
}

func (p *Provider) listSessions() (*types.Result, error) {
	sessions := p.sessions.List()

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"sessions": sessions,
			"count":    len(sessions),
		},
	}, nil
}

func (p *Provider) getSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}

	info, err := p.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    sessionData(*info),
	}, nil
}

func sessionData(info terminal.SessionInfo) map[string]interface{} {
	return map[string]interface{}{
		"id":          info.ID,
		"shell":       info.Shell,
		"working_dir": info.WorkingDir,
		"cols":        info.Cols,
		"rows":        info.Rows,
		"pid":         info.PID,
		"state":       info.State,
		"started_at":  info.StartedAt,
	}
}

func requireString(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, name)
	}
	return v, nil
}

func requireDimension(params map[string]interface{}, name string) (uint16, error) {
	if _, ok := params[name]; !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidArgument, name)
	}
	return optionalDimension(params, name)
}

// optionalDimension reads a terminal dimension; absent means 0, which the
// registry replaces with its default on create and rejects on resize.
func optionalDimension(params map[string]interface{}, name string) (uint16, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return 0, nil
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint16:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArgument, name)
	}

	if f < 0 || f > math.MaxUint16 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s out of range: %v", ErrInvalidArgument, name, f)
	}
	return uint16(f), nil
}

// optionalStrings reads a list of strings; absent means nil.
func optionalStrings(params map[string]interface{}, name string) ([]string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch raw := v.(type) {
	case []string:
		return raw, nil
	case []interface{}:
		out := make([]string, 0, len(raw))
		for _, a := range raw {
			s, ok := a.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be strings", ErrInvalidArgument, name)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a list of strings", ErrInvalidArgument, name)
	}
}

// optionalStringMap reads an object whose values are all strings; absent
// means nil.
func optionalStringMap(params map[string]interface{}, name string) (map[string]string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch raw := v.(type) {
	case map[string]string:
		return raw, nil
	case map[string]interface{}:
		out := make(map[string]string, len(raw))
		for k, val := range raw {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s must be a string", ErrInvalidArgument, name, k)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object of strings", ErrInvalidArgument, name)
	}
}
