package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/voxbridge/voxbridge/internal/protocol"
	"github.com/voxbridge/voxbridge/internal/session"
)

// writeTimeout bounds one outbound frame write.
const writeTimeout = 10 * time.Second

// wsTransport adapts a websocket connection to [session.Transport]. A mutex
// serialises writes; the read loop and pipeline goroutine may both send.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

var _ session.Transport = (*wsTransport)(nil)

func newTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

// Send writes env as one text frame.
func (t *wsTransport) Send(ctx context.Context, env protocol.Envelope) error {
	raw, err := env.Encode()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.Write(ctx, websocket.MessageText, raw)
}
