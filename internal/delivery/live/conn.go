package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"agency/internal/access"
	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
	"agency/internal/errors"
	"agency/internal/livequery"
	"agency/internal/session"
	"agency/internal/util"

	"github.com/gorilla/websocket"
)

// conn is one websocket client. Frames are read on the serving goroutine and
// written by a single writer goroutine fed through a bounded queue.
type conn struct {
	h        *Handler
	ws       *websocket.Conn
	logger   *slog.Logger
	resolver *session.Resolver

	send      chan any
	done      chan struct{}
	closeOnce sync.Once

	// mu guards the gate state and the subscription set so a deny and a
	// concurrent subscribe cannot interleave.
	mu       sync.Mutex
	uid      string
	role     entity.Role
	decision access.Decision
	profile  *entity.Profile
	subs     map[string]*livequery.Subscription
}

func newConn(h *Handler, ws *websocket.Conn, logger *slog.Logger) *conn {
	return &conn{
		h:        h,
		ws:       ws,
		logger:   logger,
		resolver: session.NewResolver(h.profiles, h.manager, logger),
		send:     make(chan any, h.cfg.SendQueueSize),
		done:     make(chan struct{}),
		decision: access.Deny,
		subs:     make(map[string]*livequery.Subscription),
	}
}

// serve runs the connection until the client goes away or ctx ends.
func (c *conn) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	started := time.Now()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()

	stopWatch := c.resolver.Watch(c.onSession)

	c.readLoop(ctx)

	stopWatch()
	c.resolver.Close()
	c.logger.Debug("Live connection closing",
		slog.Int("subscriptions", c.subscriptions()),
		slog.String("duration", util.FormatDuration(time.Since(started))),
	)
	c.closeSubscriptions()
	c.shutdown()
	wg.Wait()
	_ = c.ws.Close()
}

func (c *conn) readLoop(ctx context.Context) {
	pongWait := 2 * c.h.cfg.PingInterval
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame ClientFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("Live connection closed", slog.Any("error", err))
			}

			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case <-c.done:
			return
		default:
		}

		c.handle(ctx, &frame)
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(c.h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.h.cfg.WriteTimeout))
			if err := c.ws.WriteJSON(frame); err != nil {
				c.logger.Debug("Live write failed", slog.Any("error", err))
				c.shutdown()

				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.h.cfg.WriteTimeout)); err != nil {
				c.shutdown()

				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.h.cfg.WriteTimeout))

			return
		}
	}
}

// enqueue never blocks. A client that cannot keep up is disconnected.
func (c *conn) enqueue(frame any) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- frame:
	default:
		c.logger.Warn("Live send queue full, dropping connection")
		c.shutdown()
	}
}

// shutdown stops the writer and unblocks the reader.
func (c *conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.SetReadDeadline(time.Now())
	})
}

func (c *conn) handle(ctx context.Context, f *ClientFrame) {
	switch f.Type {
	case FrameAuth:
		identity, err := c.h.sessionUC.Authenticate(ctx, f.Token)
		if err != nil {
			c.enqueue(newErrorFrame("", err))

			return
		}
		c.resolver.SetIdentity(ctx, identity)

	case FrameSignOut:
		c.resolver.SetIdentity(ctx, nil)

	case FrameSubscribe:
		if err := c.subscribe(ctx, f); err != nil {
			c.enqueue(newErrorFrame(f.ID, err))
		}

	case FrameUnsubscribe:
		c.mu.Lock()
		sub := c.subs[f.ID]
		delete(c.subs, f.ID)
		c.mu.Unlock()
		if sub != nil {
			sub.Close()
		}

	default:
		c.enqueue(newErrorFrame(f.ID, domainerrors.ErrValidationFailed.WithDetails("unknown frame type "+f.Type)))
	}
}

// onSession re-evaluates the gate on every session transition. Subscriptions
// are dropped on deny and whenever the identity or role they were scoped for
// changes.
func (c *conn) onSession(st session.State) {
	decision := access.Decide(st.Profile, "", st.Loading)

	var uid string
	if st.Identity != nil {
		uid = st.Identity.UID
	}
	var role entity.Role
	if st.Profile != nil {
		role = st.Profile.Role
	}

	c.mu.Lock()
	rescoped := uid != c.uid || (decision == access.Admit && role != c.role)
	c.uid = uid
	if decision == access.Admit {
		c.role = role
	}
	c.decision = decision
	c.profile = st.Profile
	var stale []*livequery.Subscription
	if decision == access.Deny || rescoped {
		stale = c.detachLocked()
	}
	c.mu.Unlock()

	for _, sub := range stale {
		sub.Close()
	}

	frame := &SessionFrame{
		Type:     FrameSession,
		Identity: newIdentityView(st.Identity),
		Profile:  st.Profile,
		Loading:  st.Loading,
		Decision: decision.String(),
	}
	if st.Err != nil {
		body := errorBody(domainerrors.ErrProfileResolutionFailed)
		frame.Error = &body
	}
	c.enqueue(frame)
}

func (c *conn) subscribe(ctx context.Context, f *ClientFrame) error {
	c.mu.Lock()
	prev, err := c.subscribeLocked(ctx, f)
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	return err
}

// subscribeLocked opens the subscription and returns the one it replaced.
func (c *conn) subscribeLocked(ctx context.Context, f *ClientFrame) (*livequery.Subscription, error) {
	switch c.decision {
	case access.Pending:
		return nil, errors.Wrap(domainerrors.ErrForbidden, "session is still loading")
	case access.Deny:
		if c.uid == "" {
			return nil, domainerrors.ErrUnauthenticated
		}

		return nil, access.Authorize(c.profile, "")
	}

	t, err := scope(ctx, c.h.records, c.profile, f)
	if err != nil {
		return nil, err
	}

	id, collection := f.ID, t.query.Collection.String()
	// ref is filled in under mu before the listener can read it under mu.
	ref := new(*livequery.Subscription)
	sub := c.h.manager.Subscribe(ctx, t.query, func(st livequery.State) {
		res := livequery.DecodeState(c.h.manager, t.query, st, t.decode)
		if res.Err != nil {
			c.dropSubscription(id, ref)
			c.enqueue(newErrorFrame(id, res.Err))

			return
		}
		c.enqueue(&SnapshotFrame{
			Type:       FrameSnapshot,
			ID:         id,
			Collection: collection,
			Items:      res.Items,
			ReadTime:   st.ReadTime,
		})
	})
	*ref = sub

	prev := c.subs[id]
	c.subs[id] = sub

	return prev, nil
}

// dropSubscription forgets a failed subscription unless it was already replaced.
func (c *conn) dropSubscription(id string, ref **livequery.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs[id] == *ref {
		delete(c.subs, id)
	}
}

func (c *conn) detachLocked() []*livequery.Subscription {
	subs := make([]*livequery.Subscription, 0, len(c.subs))
	for id, sub := range c.subs {
		subs = append(subs, sub)
		delete(c.subs, id)
	}

	return subs
}

func (c *conn) closeSubscriptions() {
	c.mu.Lock()
	subs := c.detachLocked()
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// subscriptions reports how many live queries are open.
func (c *conn) subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.subs)
}
