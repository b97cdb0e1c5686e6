package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// connection is the process-local record of one attached client. It is not
// persisted and holds no conversation state; sessionId is mutated only under
// the coordinator's lock.
type connection struct {
	id          string
	sessionId   string
	connectedAt time.Time
	ws          *websocket.Conn
	send        chan outboundEvent
	closed      bool
}
