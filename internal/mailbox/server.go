package mailbox

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/cardstack/internal/auth"
)

// frame is the websocket wire form of a Message. Payload is base64 in JSON.
type frame struct {
	Tag     int64  `json:"tag"`
	Payload []byte `json:"payload"`
}

const (
	writeWait = 5 * time.Second
	// drainWait bounds how long a connection lingers for the peer to close
	// after the mailbox has been destroyed.
	drainWait = 2 * time.Second
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithInboundTags restricts the tags a remote peer may send on. Frames with
// other tags are dropped, and no player may claim one of these tags as its id.
func WithInboundTags(tags ...int64) ServerOption {
	return func(s *Server) {
		s.inbound = append([]int64(nil), tags...)
	}
}

// Server exposes a Mailbox to remote players over websockets.
// Mount it on a ServeMux under the pattern "GET /mq/{key}".
type Server struct {
	box      *Mailbox
	signer   *auth.Signer
	inbound  []int64
	upgrader websocket.Upgrader
	conns    sync.WaitGroup
}

// NewServer returns a Server for box that authenticates peers with signer.
func NewServer(box *Mailbox, signer *auth.Signer, opts ...ServerOption) *Server {
	s := &Server{
		box:    box,
		signer: signer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP authenticates the peer, upgrades the connection and pumps
// messages until either side goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("key") != strconv.Itoa(s.box.Key()) {
		http.NotFound(w, r)
		return
	}
	pid, err := s.signer.Verify(auth.BearerToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if len(s.inbound) > 0 && matches(pid, s.inbound) {
		http.Error(w, "player id collides with a reserved tag", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("mailbox upgrade failed", "pid", pid, "error", err)
		return
	}
	s.conns.Add(1)
	defer s.conns.Done()

	slog.Debug("mailbox peer attached", "pid", pid)
	s.serve(conn, pid)
	slog.Debug("mailbox peer detached", "pid", pid)
}

// serve runs the read loop on the calling goroutine and the write loop on
// another. The write loop is the only writer on conn.
func (s *Server) serve(conn *websocket.Conn, pid int64) {
	// The request context ends when ServeHTTP returns, not when the peer
	// leaves, so the pump gets its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer conn.Close()

	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		s.pump(ctx, conn, pid)
		// Mailbox gone: give the peer a moment to read what was sent and
		// close its side.
		_ = conn.SetReadDeadline(time.Now().Add(drainWait))
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			break
		}
		if len(s.inbound) > 0 && !matches(f.Tag, s.inbound) {
			slog.Warn("dropping frame on reserved tag", "pid", pid, "tag", f.Tag)
			continue
		}
		if err := s.box.Send(f.Tag, f.Payload); err != nil {
			break
		}
	}
	cancel()
	<-pumped
}

// pump streams messages tagged pid to the peer until the mailbox is closed
// and drained, the peer goes away, or ctx ends.
func (s *Server) pump(ctx context.Context, conn *websocket.Conn, pid int64) {
	for {
		payload, err := s.box.Receive(ctx, pid)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "mailbox closed")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			}
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame{Tag: pid, Payload: payload}); err != nil {
			slog.Warn("mailbox write failed", "pid", pid, "error", err)
			return
		}
	}
}

// Wait blocks until every connection has finished or ctx ends.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
