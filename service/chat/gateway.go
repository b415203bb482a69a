package chat

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ChatSync/logger"
	"ChatSync/model"
	syncsvc "ChatSync/service/sync"
	storeredis "ChatSync/store/redis"
	"ChatSync/tools/errs"
	"ChatSync/tools/ids"
	"ChatSync/tools/safe"
)

// Identity resolves a handshake bearer token to an account. Credential
// storage and hashing live behind this seam.
type Identity interface {
	ResolveUserFromToken(ctx context.Context, token string) (*model.User, error)
}

// StatusStore persists the durable online/offline flag and lastSeen.
type StatusStore interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string, lastSeen time.Time) error
}

// Participancy answers whether a user durably belongs to a conversation.
type Participancy interface {
	FindByID(ctx context.Context, conversationID string) (*model.Conversation, error)
}

// Catchup is the pull-side sync service the sync:request path calls.
type Catchup interface {
	MissedUpdates(ctx context.Context, userID string, since time.Time) (*syncsvc.Updates, error)
}

// ViewRecorder persists per-user read markers for conversation:view.
type ViewRecorder interface {
	UpdateView(ctx context.Context, userID, conversationID, messageID string) error
}

type Config struct {
	NodeID           string
	HandshakeTimeout time.Duration // token resolution window, default 10s
	PingInterval     time.Duration // default 25s
	PongWait         time.Duration // default 60s
	WriteWait        time.Duration // default 10s
	SendQueue        int           // per-connection outbound buffer, default 256
	FanoutWorkers    int
	FanoutQueue      int
	PresenceTTL      time.Duration // redis mirror key TTL, default 90s
}

func (c *Config) norm() {
	if c.NodeID == "" {
		c.NodeID = "gateway-1"
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
	if c.PresenceTTL <= 0 {
		c.PresenceTTL = 90 * time.Second
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway owns every live connection plus the presence and room tables.
// The fan-out engine only reads those tables; all mutation happens in the
// connect/disconnect/join/leave paths here.
type Gateway struct {
	conf     Config
	identity Identity
	status   StatusStore
	convs    Participancy
	catchup  Catchup
	views    ViewRecorder

	presence *Presence
	rooms    *RoomTable
	engine   *Engine
	disp     *Dispatcher

	mu      sync.RWMutex
	clients map[string]*Client

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewGateway(conf Config, identity Identity, status StatusStore, convs Participancy, catchup Catchup, views ViewRecorder) *Gateway {
	conf.norm()
	g := &Gateway{
		conf:     conf,
		identity: identity,
		status:   status,
		convs:    convs,
		catchup:  catchup,
		views:    views,
		presence: NewPresence(),
		rooms:    NewRoomTable(),
		disp:     NewDispatcher(),
		clients:  make(map[string]*Client),
		stopCh:   make(chan struct{}),
	}
	g.engine = NewEngine(g.presence, g.rooms, g, conf.FanoutWorkers, conf.FanoutQueue)

	g.disp.Register(joinHandler{g})
	g.disp.Register(leaveHandler{g})
	g.disp.Register(viewHandler{g})
	g.disp.Register(sendHandler{})
	g.disp.Register(typingHandler{g: g, start: true})
	g.disp.Register(typingHandler{g: g, start: false})
	g.disp.Register(receiptHandler{g: g, kind: KindMessageDelivered})
	g.disp.Register(receiptHandler{g: g, kind: KindMessageRead})
	g.disp.Register(syncHandler{g})

	go g.presenceSweeper()
	return g
}

func (g *Gateway) Engine() *Engine     { return g.engine }
func (g *Gateway) Presence() *Presence { return g.presence }
func (g *Gateway) Rooms() *RoomTable   { return g.rooms }
func (g *Gateway) NodeID() string      { return g.conf.NodeID }

func (g *Gateway) Close() {
	g.stopOnce.Do(func() { close(g.stopCh) })
	g.engine.Close()
	g.mu.Lock()
	for _, c := range g.clients {
		c.close()
	}
	g.clients = make(map[string]*Client)
	g.mu.Unlock()
}

// HandleWS is the gin route for the WebSocket endpoint. The bearer token
// (query param or Authorization header) is resolved before the upgrade,
// so a rejected credential never touches presence or rooms.
func (g *Gateway) HandleWS(c *gin.Context) {
	token := bearerToken(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), g.conf.HandshakeTimeout)
	defer cancel()
	user, err := g.identity.ResolveUserFromToken(ctx, token)
	if err != nil {
		logger.Infof("[gateway] handshake rejected remote=%s err=%v", c.ClientIP(), err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.AsCodeError(err))
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[gateway] upgrade failed remote=%s err=%v", c.ClientIP(), err)
		return
	}

	client := newClient(ids.GenerateString(), ws, g.conf.SendQueue)
	client.setState(StateAuthenticating)
	client.bind(user)
	client.setState(StateActive)

	g.register(client)
	logger.Infof("[gateway] connected conn=%s user=%s", client.ConnID, client.UserID)

	_ = ws.SetReadDeadline(time.Now().Add(g.conf.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(g.conf.PongWait))
	})

	safe.Go(func() { client.writePump(g.conf.PingInterval, g.conf.WriteWait) })

	g.readLoop(client)
	g.teardown(client)
}

func bearerToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("token")); t != "" {
		return t
	}
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

func (g *Gateway) register(client *Client) {
	g.mu.Lock()
	g.clients[client.ConnID] = client
	g.mu.Unlock()

	first := g.presence.RecordConnect(client.UserID, client.ConnID)
	if !first {
		return
	}
	// offline -> online transition: durable status and the redis mirror
	// update off the hot path, then the presence broadcast
	userID := client.UserID
	user := client.User
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if err := g.status.MarkOnline(ctx, userID); err != nil {
			logger.Errorf("[gateway] mark online failed user=%s err=%v", userID, err)
		}
		if err := storeredis.PresenceOnline(userID, g.conf.NodeID, g.conf.PresenceTTL); err != nil {
			logger.Warnf("[gateway] presence mirror set failed user=%s err=%v", userID, err)
		}
	})
	g.engine.Publish(UserOnlineEvent(user))
}

func (g *Gateway) readLoop(client *Client) {
	for {
		mt, data, err := client.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debugf("[gateway] peer closed conn=%s", client.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[gateway] heartbeat timeout conn=%s user=%s", client.ConnID, client.UserID)
			} else {
				logger.Debugf("[gateway] read error conn=%s err=%v", client.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		if client.State() != StateActive {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			frameError(client, perr)
			continue
		}
		h := g.disp.Get(frame.Event)
		if h == nil {
			continue
		}
		if herr := h.Handle(client, frame); herr != nil {
			logger.Debugf("[gateway] handler error event=%s conn=%s err=%v", frame.Event, client.ConnID, herr)
			frameError(client, herr)
		}
	}
}

// teardown runs exactly once per connection, room cleanup strictly before
// the presence transition so a late room broadcast can still resolve (and
// silently drop) the connection instead of racing a half-removed entry.
func (g *Gateway) teardown(client *Client) {
	client.close()

	g.rooms.LeaveAll(client.ConnID)
	last := g.presence.RecordDisconnect(client.UserID, client.ConnID)

	g.mu.Lock()
	delete(g.clients, client.ConnID)
	g.mu.Unlock()
	client.setState(StateClosed)

	logger.Infof("[gateway] disconnected conn=%s user=%s last=%v", client.ConnID, client.UserID, last)
	if !last {
		return
	}

	lastSeen := time.Now().UTC()
	userID := client.UserID
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if err := g.status.MarkOffline(ctx, userID, lastSeen); err != nil {
			logger.Errorf("[gateway] mark offline failed user=%s err=%v", userID, err)
		}
		if err := storeredis.PresenceOffline(userID); err != nil {
			logger.Warnf("[gateway] presence mirror del failed user=%s err=%v", userID, err)
		}
	})
	g.engine.Publish(UserOfflineEvent(userID, lastSeen))
}

// Send implements the fan-out Sender. A connection that disappeared
// between audience resolution and delivery just drops the frame; the
// error never reaches the publisher.
func (g *Gateway) Send(connID string, payload []byte) error {
	g.mu.RLock()
	client := g.clients[connID]
	g.mu.RUnlock()
	if client == nil {
		return errs.ErrDeliveryDropped.WithDetail("unknown conn " + connID)
	}
	if !client.enqueue(payload) {
		return errs.ErrDeliveryDropped.WithDetail("queue full or inactive " + connID)
	}
	return nil
}

// EmitToUser pushes one event to every connection the user has here.
func (g *Gateway) EmitToUser(userID, event string, data any) {
	payload := MarshalFrame(event, data)
	if payload == nil {
		return
	}
	for _, connID := range g.presence.ConnectionsFor(userID) {
		if err := g.Send(connID, payload); err != nil {
			logger.Debugf("[gateway] emit drop user=%s conn=%s", userID, connID)
		}
	}
}

// EmitToRoom pushes one event to a room, optionally excluding a
// connection (the relaying origin).
func (g *Gateway) EmitToRoom(roomID, event string, data any, excludeConnID string) {
	payload := MarshalFrame(event, data)
	if payload == nil {
		return
	}
	for _, connID := range g.rooms.MembersOf(roomID) {
		if connID == excludeConnID {
			continue
		}
		if err := g.Send(connID, payload); err != nil {
			logger.Debugf("[gateway] room emit drop room=%s conn=%s", roomID, connID)
		}
	}
}

// UserStatus reports whether the user is online here or, through the
// redis mirror, on a peer node. Local state wins: it is authoritative for
// this node's sockets and costs no round trip.
func (g *Gateway) UserStatus(userID string) (online bool, node string) {
	if g.presence.IsOnline(userID) {
		return true, g.conf.NodeID
	}
	node, online, err := storeredis.PresenceLookup(userID)
	if err != nil {
		logger.Warnf("[gateway] presence lookup failed user=%s err=%v", userID, err)
		return false, ""
	}
	return online, node
}

// HandlePresenceQuery serves GET /api/presence/:userId.
func (g *Gateway) HandlePresenceQuery(c *gin.Context) {
	userID := c.Param("userId")
	online, node := g.UserStatus(userID)
	body := gin.H{"userId": userID, "online": online}
	if online {
		body["node"] = node
	}
	c.JSON(http.StatusOK, body)
}

// BroadcastAll pushes one event to every connection on this node except
// those owned by excludeUserID.
func (g *Gateway) BroadcastAll(event string, data any, excludeUserID string) {
	payload := MarshalFrame(event, data)
	if payload == nil {
		return
	}
	for _, connID := range g.presence.ConnectionsExcept(excludeUserID) {
		if err := g.Send(connID, payload); err != nil {
			logger.Debugf("[gateway] broadcast drop conn=%s", connID)
		}
	}
}

// presenceSweeper renews the redis mirror TTLs for users still online
// here, so a crashed node's keys age out instead of lying forever.
func (g *Gateway) presenceSweeper() {
	interval := g.conf.PresenceTTL / 3
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-g.stopCh:
			return
		case <-t.C:
			for _, userID := range g.presence.OnlineUsers() {
				if err := storeredis.PresenceRenew(userID, g.conf.PresenceTTL); err != nil {
					logger.Warnf("[gateway] presence renew failed user=%s err=%v", userID, err)
				}
			}
		}
	}
}
