package mailbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/cardstack/internal/auth"
)

// ErrUnknownKey is returned by Dial when the server has no mailbox under the
// requested key.
var ErrUnknownKey = errors.New("no mailbox under that key")

// Conn is a player's attachment to a remote Mailbox.
//
// Thread-safety: Send, Receive and Close are safe for concurrent use.
type Conn struct {
	ws    *websocket.Conn
	inbox *Mailbox

	writeMu sync.Mutex
	closed  bool
}

// Dial attaches to the mailbox with the given key on the server at serverURL
// ("http://host:port" or "ws://host:port"), authenticating with token.
func Dial(ctx context.Context, serverURL string, key int, token string) (*Conn, error) {
	u, err := mailboxURL(serverURL, key)
	if err != nil {
		return nil, err
	}
	hdr := http.Header{}
	auth.SetBearer(hdr, token)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, resp, err := dialer.DialContext(ctx, u, hdr)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusNotFound:
				return nil, fmt.Errorf("dial mailbox %d: %w", key, ErrUnknownKey)
			case http.StatusUnauthorized:
				return nil, fmt.Errorf("dial mailbox %d: %w", key, auth.ErrUnauthorized)
			}
		}
		return nil, fmt.Errorf("dial mailbox %d: %w", key, err)
	}

	c := &Conn{ws: ws, inbox: New(key)}
	go c.reader()
	return c, nil
}

func mailboxURL(serverURL string, key int) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/mq/" + strconv.Itoa(key)
	return u.String(), nil
}

// reader moves inbound frames into the local inbox. When the connection ends
// the inbox is closed, so pending and future receives see ErrClosed once
// drained.
func (c *Conn) reader() {
	defer c.inbox.Close()
	for {
		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			return
		}
		if err := c.inbox.Send(f.Tag, f.Payload); err != nil {
			return
		}
	}
}

// Send delivers payload under tag to the remote mailbox.
func (c *Conn) Send(tag int64, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return ErrClosed
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(frame{Tag: tag, Payload: payload}); err != nil {
		return fmt.Errorf("send tag %d: %w", tag, err)
	}
	return nil
}

// Receive blocks until a message tagged tag arrives.
func (c *Conn) Receive(ctx context.Context, tag int64) ([]byte, error) {
	return c.inbox.Receive(ctx, tag)
}

// Close detaches from the remote mailbox.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	err := c.ws.Close()
	c.inbox.Close()
	return err
}
