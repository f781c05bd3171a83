package gateway

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rummy-lite/apps/server/internal/auth"
	"rummy-lite/apps/server/internal/codec"
	"rummy-lite/apps/server/internal/lobby"
	"rummy-lite/apps/server/internal/room"
	"rummy-lite/rummy"
)

const (
	sendBuffer   = 256
	maxFrameSize = 65536
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// Connection represents a WebSocket client connection. It is the room
// subscriber for its player.
type Connection struct {
	ID       string
	Account  auth.Account
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	LastPing time.Time

	binary    bool
	quit      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	roomCode string // current room association
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64
	lobby       *lobby.Lobby
	auth        auth.Service
}

// New creates a new Gateway instance
func New(lby *lobby.Lobby, authService auth.Service) *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		lobby:       lby,
		auth:        authService,
	}
}

// HandleWebSocket authenticates the client, upgrades the connection and
// starts its pumps. Clients without a token get a guest session.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	token := strings.TrimSpace(query.Get("token"))
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}

	var account auth.Account
	var issued string
	if token != "" {
		var ok bool
		account, ok = g.auth.ResolveSession(token)
		if !ok {
			http.Error(w, "invalid session token", http.StatusUnauthorized)
			return
		}
	} else {
		var err error
		account, issued, err = g.auth.Guest(query.Get("name"))
		if err != nil {
			log.Printf("[Gateway] Guest session failed: %v", err)
			http.Error(w, "guest login failed", http.StatusInternalServerError)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:       fmt.Sprintf("conn_%d", g.nextConnID),
		Account:  account,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Gateway:  g,
		LastPing: time.Now(),
		binary:   query.Get("format") == "binary",
		quit:     make(chan struct{}),
	}
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s (player=%s guest=%v), total: %d", c.ID, account.ID, account.Guest, total)

	c.Deliver(codec.Session(account.ID, account.Username, issued, account.Guest))

	go c.readPump()
	go c.writePump()
}

// Deliver queues env without blocking; false means the client fell behind.
func (c *Connection) Deliver(env *codec.Envelope) bool {
	data, err := codec.Encode(env, c.binary)
	if err != nil {
		log.Printf("[Gateway] Failed to encode %s for %s: %v", env.Type, c.ID, err)
		return true
	}
	select {
	case <-c.quit:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Close makes the write pump hang up.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

func (c *Connection) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

func (c *Connection) setRoom(code string) {
	c.mu.Lock()
	c.roomCode = code
	c.mu.Unlock()
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}
		c.handleMessage(message, messageType == websocket.BinaryMessage)
	}
}

func (c *Connection) handleMessage(data []byte, binary bool) {
	msg, err := codec.Decode(data, binary)
	if err != nil {
		c.respond(c.currentRoom(), "", nil, rummy.Errorf(rummy.KindBadRequest, err.Error()))
		return
	}
	if msg.PlayerID != "" && msg.PlayerID != c.Account.ID {
		c.respond(msg.RoomCode, msg.RequestID, nil, rummy.ErrPlayerNotFound)
		return
	}

	switch msg.Action {
	case codec.ActionCreateRoom:
		c.handleEnter(msg, true)
	case codec.ActionJoinRoom:
		c.handleEnter(msg, false)
	case codec.ActionLeaveRoom:
		c.handleLeave(msg)
	case codec.ActionStartGame:
		c.submit(msg, room.Event{Type: room.EventStart})
	case codec.ActionAddAI:
		d, err := rummy.ParseDifficulty(msg.Difficulty)
		if err != nil {
			c.respond(c.targetRoom(msg), msg.RequestID, nil, rummy.Errorf(rummy.KindBadRequest, err.Error()))
			return
		}
		c.submit(msg, room.Event{Type: room.EventAddAI, Difficulty: d})
	case codec.ActionSync:
		c.submit(msg, room.Event{Type: room.EventSync})
	default:
		action, err := rummy.ParseAction(msg.Action)
		if err != nil {
			c.respond(c.targetRoom(msg), msg.RequestID, nil, rummy.Errorf(rummy.KindBadRequest, err.Error()))
			return
		}
		c.submit(msg, room.Event{Type: room.EventIntent, Intent: rummy.Intent{
			PlayerID: c.Account.ID,
			Action:   action,
			TileIDs:  msg.TileIDs,
			Table:    msg.Table,
		}})
	}
}

// handleEnter creates or joins a room. A connection follows one room at a
// time, so any previous room is left first.
func (c *Connection) handleEnter(msg codec.ClientMessage, create bool) {
	lby := c.Gateway.lobby
	username := strings.TrimSpace(msg.Username)
	if username == "" {
		username = c.Account.Username
	}
	if prev := c.currentRoom(); prev != "" && (create || prev != msg.RoomCode) {
		lby.Leave(prev, c.Account.ID)
		c.setRoom("")
	}

	var rm *room.Room
	var reply room.Reply
	if create {
		rm, reply = lby.Create(msg.RoomCode, c.Account.ID, username, c)
	} else {
		rm, reply = lby.Join(msg.RoomCode, c.Account.ID, username, c)
	}
	code := msg.RoomCode
	if rm != nil {
		code = rm.Code
		if reply.Err == nil {
			c.setRoom(rm.Code)
		}
	}
	c.respond(code, msg.RequestID, reply.Snapshot, reply.Err)
}

func (c *Connection) handleLeave(msg codec.ClientMessage) {
	code := c.targetRoom(msg)
	reply := c.Gateway.lobby.Leave(code, c.Account.ID)
	if code == c.currentRoom() {
		c.setRoom("")
	}
	c.respond(code, msg.RequestID, nil, reply.Err)
}

func (c *Connection) submit(msg codec.ClientMessage, e room.Event) {
	code := c.targetRoom(msg)
	if code == "" {
		c.respond("", msg.RequestID, nil, rummy.ErrGameNotFound)
		return
	}
	e.PlayerID = c.Account.ID
	reply := c.Gateway.lobby.Submit(code, e)
	c.respond(code, msg.RequestID, reply.Snapshot, reply.Err)
}

func (c *Connection) targetRoom(msg codec.ClientMessage) string {
	if msg.RoomCode != "" {
		return msg.RoomCode
	}
	return c.currentRoom()
}

func (c *Connection) respond(code, requestID string, snap *rummy.Snapshot, err error) {
	env, encErr := codec.Response(code, requestID, snap, err)
	if encErr != nil {
		log.Printf("[Gateway] Failed to build response for %s: %v", c.ID, encErr)
		return
	}
	if !c.Deliver(env) {
		log.Printf("[Gateway] Dropped response to %s (request=%s)", c.ID, requestID)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.binary {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(frameType, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.quit:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "resync required"))
			return
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	delete(g.connections, c.ID)
	total := len(g.connections)
	g.mu.Unlock()

	if code := c.currentRoom(); code != "" {
		g.lobby.MarkDisconnected(code, c.Account.ID, c)
	}
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, total)
}

// Count returns the number of open connections.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// Close hangs up every connection.
func (g *Gateway) Close() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		c.Close()
	}
}
