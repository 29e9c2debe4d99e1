// Package terminal exposes PTY sessions as service tools.
//
// The provider is a thin adapter over the domain terminal.Registry: it checks
// and converts loosely typed params, calls the registry and shapes the answer
// as a types.Result. Session output is never returned from a tool call; it
// is pushed to subscribers as pty-output and pty-exit events.
//
// Tools:
//   - terminal.create_session: Spawn a shell on a new PTY
//   - terminal.write: Send input to a session
//   - terminal.resize: Change a session's geometry
//   - terminal.kill: Terminate a session
//   - terminal.list_sessions: List live sessions
//   - terminal.get_session: Describe one session
//
// Example Usage:
//
//	provider := terminal.NewProvider(sessions)
//	result, err := provider.Execute(ctx, "terminal.write", map[string]interface{}{
//	    "session_id": id,
//	    "input":      "ls -la\n",
//	}, nil)
package terminal
