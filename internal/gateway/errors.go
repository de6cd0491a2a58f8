package gateway

import (
	"errors"
	"fmt"
	"strings"
)

var ErrTransport = errors.New("videoserver transport error")
var ErrProtocol = errors.New("videoserver protocol error")
var ErrRejected = errors.New("videoserver rejected request")

// Error carries the failed operation and the gateway resource ids involved,
// so teardown paths can log enough context to find orphaned resources.
type Error struct {
	Op           string
	ConnectionID string
	HandleID     string
	RoomID       string
	Err          error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.ConnectionID != "" {
		fmt.Fprintf(&b, " connection=%s", e.ConnectionID)
	}
	if e.HandleID != "" {
		fmt.Fprintf(&b, " handle=%s", e.HandleID)
	}
	if e.RoomID != "" {
		fmt.Fprintf(&b, " room=%s", e.RoomID)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}
