package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/antibyte/c64basic/pkg/basic"
	"github.com/antibyte/c64basic/pkg/logger"
	"github.com/antibyte/c64basic/pkg/resources"
	"github.com/antibyte/c64basic/pkg/shared"

	"github.com/gorilla/websocket"
)

const readyText = "READY."

// inputQueue is how many lines may be typed ahead of the interpreter.
const inputQueue = 16

// Client is one WebSocket connection. It is the basic.Console and
// basic.Screen of its interpreter.
type Client struct {
	handler *Handler
	conn    *websocket.Conn
	session *resources.Session
	interp  *basic.Interpreter

	send   chan []byte
	inputs chan string

	ctx       context.Context // cancelled on disconnect
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(h *Handler, conn *websocket.Conn, session *resources.Session, store basic.Persistence) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		handler: h,
		conn:    conn,
		session: session,
		send:    make(chan []byte, h.cfg.SendBuffer),
		inputs:  make(chan string, inputQueue),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.interp = basic.New(c, store, h.opts)
	return c
}

func (c *Client) start() {
	go c.writePump()
	go c.commandLoop()
	go c.readPump()
}

// close tears the connection down once; pumps and loop exit on ctx.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
		c.handler.release(c)
		logger.WebSocketDebug("Client closed for session %s", c.session.ID)
	})
}

// sendMessage queues msg; it blocks while the buffer is full so a
// printing loop is throttled by the connection.
func (c *Client) sendMessage(msg shared.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.WebSocketError("Failed to marshal %s message: %v", msg.Type, err)
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	}
}

// Print sends program output.
func (c *Client) Print(text string) {
	if text != "" {
		c.sendMessage(shared.Text(text))
	}
}

// ReadLine asks the terminal for an INPUT answer.
func (c *Client) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.sendMessage(shared.Message{Type: shared.MessageTypeInputRequest, Prompt: prompt})
	select {
	case line := <-c.inputs:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Clear asks the terminal to clear its screen.
func (c *Client) Clear() {
	c.sendMessage(shared.Message{Type: shared.MessageTypeClear})
}

// SetColors forwards COLOR/SCREEN changes.
func (c *Client) SetColors(fg, bg int) {
	c.sendMessage(shared.Color(fg, bg))
}

// SetBorder forwards POKE 53280.
func (c *Client) SetBorder(color int) {
	c.sendMessage(shared.Border(color))
}

// commandLoop executes queued input lines one at a time.
func (c *Client) commandLoop() {
	c.sendMessage(shared.Message{
		Type:      shared.MessageTypeSession,
		SessionID: c.session.ID,
		Name:      c.session.Name,
	})
	c.ready()
	for {
		select {
		case <-c.ctx.Done():
			return
		case line := <-c.inputs:
			c.execute(line)
		}
	}
}

func (c *Client) ready() {
	c.sendMessage(shared.Message{Type: shared.MessageTypeReady, Content: readyText})
}

func (c *Client) execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if _, _, ok := basic.ParseLine(line); ok {
		if err := c.interp.AddOrReplaceLine(line); err != nil {
			c.sendMessage(shared.Error(err.Error()))
		}
		return
	}

	sessions := c.handler.sessions
	ctx, done, err := sessions.StartRun(c.ctx, c.session.ID)
	if err != nil {
		c.sendMessage(shared.Error(err.Error()))
		return
	}
	err = c.interp.ExecuteImmediate(ctx, line)
	done()
	sessions.Touch(c.session.ID)

	if c.ctx.Err() != nil {
		return
	}
	if err != nil {
		var brk *basic.BreakError
		if errors.As(err, &brk) && errors.Is(err, context.DeadlineExceeded) {
			logger.SessionInfo("Session %s hit the execution time limit", c.session.ID)
		}
		c.sendMessage(shared.Error(err.Error()))
	}
	c.ready()
}

// readPump liest Nachrichten vom WebSocket
func (c *Client) readPump() {
	defer c.close()

	cfg := c.handler.cfg
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.WebSocketWarn("Unexpected close for session %s: %v", c.session.ID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		msg, err := shared.DecodeClientMessage(data, cfg.MaxInputLength)
		if err != nil {
			logger.SecurityWarn("Rejected message from session %s: %v", c.session.ID, err)
			c.sendMessage(shared.Error(err.Error()))
			continue
		}
		c.handler.sessions.Touch(c.session.ID)

		switch msg.Type {
		case shared.MessageTypeBreak:
			c.handler.sessions.StopRun(c.session.ID)
		case shared.MessageTypeInput:
			select {
			case c.inputs <- sanitizeInput(msg.Content):
			default:
				c.sendMessage(shared.Error("INPUT QUEUE FULL"))
			}
		}
	}
}

// writePump schreibt Nachrichten zum WebSocket und sendet Pings
func (c *Client) writePump() {
	cfg := c.handler.cfg
	ticker := time.NewTicker(cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.WebSocketDebug("Write failed for session %s: %v", c.session.ID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// sanitizeInput drops control characters; BASIC text is printable only.
func sanitizeInput(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
