package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/weather-sync/internal/face"
	"github.com/sweeney/weather-sync/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendQueue  = 8
)

// LiveSurface is a face.Surface that streams every frame to websocket
// clients as JSON. A client that falls behind misses frames.
type LiveSurface struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*liveClient]struct{}
	last    []byte
	closed  bool
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *liveClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// NewLiveSurface creates a surface with no clients.
func NewLiveSurface(log *logger.Logger) *LiveSurface {
	return &LiveSurface{
		log: log.With("component", "live"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*liveClient]struct{}),
	}
}

// Render queues f for every connected client.
func (l *LiveSurface) Render(f face.Frame) error {
	msg, err := formatFrame(f)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = msg
	for c := range l.clients {
		select {
		case c.send <- msg:
		default:
			l.log.Debug("client behind, frame dropped", "remote", c.conn.RemoteAddr().String())
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (l *LiveSurface) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Close disconnects every client and refuses new ones.
func (l *LiveSurface) Close() {
	l.mu.Lock()
	l.closed = true
	clients := make([]*liveClient, 0, len(l.clients))
	for c := range l.clients {
		clients = append(clients, c)
	}
	l.clients = make(map[*liveClient]struct{})
	l.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ServeHTTP upgrades the request and streams frames until the client goes
// away. The most recent frame is sent straight after the upgrade.
func (l *LiveSurface) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.log.Warn("websocket upgrade failed", logger.Err(err))
		return
	}
	c := &liveClient{conn: conn, send: make(chan []byte, sendQueue), done: make(chan struct{})}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		conn.Close()
		return
	}
	l.clients[c] = struct{}{}
	if l.last != nil {
		c.send <- l.last
	}
	n := len(l.clients)
	l.mu.Unlock()
	l.log.Debug("client connected", "remote", conn.RemoteAddr().String(), "clients", n)

	go l.writeLoop(c)
	l.readLoop(c)
}

func (l *LiveSurface) remove(c *liveClient) {
	l.mu.Lock()
	delete(l.clients, c)
	l.mu.Unlock()
	c.close()
}

// readLoop discards client messages; it exists to process pongs and to
// notice the client leaving.
func (l *LiveSurface) readLoop(c *liveClient) {
	defer l.remove(c)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.log.Debug("client read failed", logger.Err(err))
			}
			return
		}
	}
}

func (l *LiveSurface) writeLoop(c *liveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				l.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				l.remove(c)
				return
			}
		}
	}
}
