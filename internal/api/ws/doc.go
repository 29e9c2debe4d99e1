// Package ws streams session events to websocket clients.
//
// The Hub is the registry's event sink. Each event is encoded once with sonic
// and queued on every interested client; a client that cannot keep up is
// disconnected instead of stalling the other clients or the Reader Loops.
//
// Server frames:
//   - {"type":"pty-output","id","data"}
//   - {"type":"pty-exit","id","reason","exit_code","error"?}
//   - {"type":"result","request_id","success","data"|"error","kind"?}
//   - {"type":"pong"}, {"type":"error","message"}, {"type":"connected","client_id"}
//
// Client frames:
//   - {"type":"invoke","request_id","tool","params"} runs a service tool
//   - {"type":"ping"}
//   - {"type":"subscribe","session_id"} limits delivery to chosen sessions;
//     an empty session_id restores delivery of all sessions
//   - {"type":"unsubscribe","session_id"}
package ws
