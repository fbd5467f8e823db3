// Package ipc carries control requests to a running asrclient shell over a
// unix socket, one JSON line per request and per response.
package ipc

import "github.com/estelamoura/unimrcp/internal/session"

// Control commands.
const (
	CommandStatus = "status"
	CommandExec   = "exec"
)

type Request struct {
	Command string `json:"command"`
	// Line is the shell line for CommandExec.
	Line string `json:"line,omitempty"`
}

type Response struct {
	OK      bool           `json:"ok"`
	PID     int            `json:"pid,omitempty"`
	Stats   *session.Stats `json:"stats,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}
