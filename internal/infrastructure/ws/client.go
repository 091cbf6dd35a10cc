package ws

import (
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/confabhq/confab/internal/infrastructure/configs"
)

// Client is one websocket connection. ID is the server-assigned
// connection id announced in the welcome message; RoomID is empty until
// the client joins a room.
type Client struct {
	conn *websocket.Conn
	cfg  configs.RealtimeConfig

	// Send is drained by the write pump, so delivery to one client is
	// strictly ordered.
	Send chan *Envelope

	ID       string
	UserID   string
	Username string
	RoomID   string
}

func NewClient(conn *websocket.Conn, cfg configs.RealtimeConfig, id, userID, username string) *Client {
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 64
	}

	return &Client{
		conn:     conn,
		cfg:      cfg,
		Send:     make(chan *Envelope, sendBuffer),
		ID:       id,
		UserID:   userID,
		Username: username,
	}
}

// ReadPump decodes inbound frames and hands them to the core loop. It
// owns the connection's read side; on any read error the client is
// unregistered, which the core treats as leaving the room.
func (c *Client) ReadPump(core *Core) {
	defer func() {
		core.Unregister() <- c
		_ = c.conn.Close()
	}()

	if c.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error (client %s): %v", c.ID, err)
			}
			break
		}

		core.Inbound() <- inboundEvent{client: c, frame: frame}
	}
}

// WritePump drains Send and keeps the connection alive with pings. One
// goroutine per client; exits when Send is closed or a write fails.
func (c *Client) WritePump() {
	pingPeriod := (c.cfg.PongWait * 9) / 10
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				log.Printf("ws write error (client %s): %v", c.ID, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
