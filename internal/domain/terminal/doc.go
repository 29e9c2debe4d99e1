// Package terminal manages concurrent pseudo-terminal sessions.
//
// A Registry spawns shells attached to PTYs, accepts their input, resizes
// them and tears them down. Each session's output is drained by its own
// Reader Loop goroutine, decoded as UTF-8 across read boundaries and handed
// to a Sink through a single dispatcher, together with exactly one exit
// event when the session ends.
//
// Lifecycle:
//
//	created -> running -> exited | killed | errored
//
// A session leaves the Registry on entering any terminal state, so Write,
// Resize and Kill against an ended session report ErrNotFound.
//
// Example Usage:
//
//	sink := terminal.MultiSink{hub, terminal.LogSink{Logger: logger}}
//	reg := terminal.NewRegistry(terminal.DefaultConfig(), sink)
//	defer reg.Close()
//
//	info, err := reg.Create(ctx, terminal.CreateOptions{Cols: 120, Rows: 40})
//	err = reg.Write(info.ID, []byte("ls -la\n"))
//	err = reg.Resize(info.ID, 100, 30)
//	err = reg.Kill(info.ID)
package terminal
