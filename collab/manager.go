package collab

import (
	"sync"
	"time"

	"github.com/anlyetim/TeamPad-sub001/core"
	"github.com/anlyetim/TeamPad-sub001/document"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Default pacing. Cursor traffic is the highest-frequency, lowest-value
// stream, so it gets the tightest throttle; live transform/text deltas are
// slightly slower; the catch-up cycle heals whatever the throttles dropped.
const (
	DefaultCursorInterval = 50 * time.Millisecond
	DefaultLiveInterval   = 120 * time.Millisecond
	DefaultSyncInterval   = 10 * time.Second
)

// Options tunes a Manager. Zero values get the defaults above.
type Options struct {
	CursorInterval time.Duration
	LiveInterval   time.Duration
	SyncInterval   time.Duration

	// OnKicked runs when a USER_KICK targeting the local user arrives,
	// after transports have been shut down.
	OnKicked func()
}

// Manager is the synchronization layer: it serializes local mutations into
// wire messages, drops self-originated echoes, applies remote messages back
// into the store through its remote-flagged entry points, and runs the
// periodic catch-up protocol. It holds no document state of its own; the
// store owns everything, the manager only proxies.
//
// Manager implements document.Broadcaster.
type Manager struct {
	store      *document.Store
	user       *core.User
	sessionID  string
	transports []Transport
	onKicked   func()

	cursorInterval time.Duration
	liveInterval   time.Duration
	syncInterval   time.Duration

	mu         sync.Mutex
	lastCursor time.Time
	lastLive   time.Time

	done      chan struct{}
	closeOnce sync.Once
}

var _ document.Broadcaster = (*Manager)(nil)

// NewManager wires the store to the given transports. The manager subscribes
// to every transport immediately; call Start to announce presence and begin
// the catch-up cycle.
func NewManager(store *document.Store, user *core.User, transports []Transport, opts Options) *Manager {
	if opts.CursorInterval <= 0 {
		opts.CursorInterval = DefaultCursorInterval
	}
	if opts.LiveInterval <= 0 {
		opts.LiveInterval = DefaultLiveInterval
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = DefaultSyncInterval
	}
	m := &Manager{
		store:          store,
		user:           user.Clone(),
		sessionID:      uuid.NewString(),
		transports:     transports,
		onKicked:       opts.OnKicked,
		cursorInterval: opts.CursorInterval,
		liveInterval:   opts.LiveInterval,
		syncInterval:   opts.SyncInterval,
		done:           make(chan struct{}),
	}
	for _, t := range transports {
		t.Subscribe(m.handle)
	}
	return m
}

// SessionID identifies this runtime on the wire.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// Start announces the local user, asks peers for a first catch-up, and kicks
// off the periodic sync cycle.
func (m *Manager) Start() {
	m.store.UpsertUser(m.user)
	m.send(core.NewUserJoin(m.user))
	m.RequestSync()

	go func() {
		ticker := time.NewTicker(m.syncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.RequestSync()
			case <-m.done:
				return
			}
		}
	}()
}

// Close broadcasts a leave and tears the transports down. Safe to call more
// than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.send(core.NewUserLeave(m.user.ID))
		close(m.done)
		for _, t := range m.transports {
			if err := t.Close(); err != nil {
				logrus.WithError(err).Warn("Transport close failed")
			}
		}
	})
}

// ---- outbound (document.Broadcaster plus presence/chat) --------------------

// BroadcastCursor publishes the local cursor, dropping updates that arrive
// within the minimum inter-send gap.
func (m *Manager) BroadcastCursor(p core.Point) {
	m.store.SetUserCursor(m.user.ID, p)

	m.mu.Lock()
	now := time.Now()
	if now.Sub(m.lastCursor) < m.cursorInterval {
		m.mu.Unlock()
		return
	}
	m.lastCursor = now
	m.mu.Unlock()

	m.send(core.NewCursorMove(m.user.ID, p))
}

func (m *Manager) BroadcastObject(obj *core.CanvasObject) {
	m.send(core.NewObjectUpdate(m.user.ID, obj))
}

// BroadcastObjectLive is the throttled path for in-progress drag and typing
// deltas. Dropped messages are fine: the gesture's commit goes out
// unthrottled and the catch-up cycle covers the rest.
func (m *Manager) BroadcastObjectLive(obj *core.CanvasObject) {
	m.mu.Lock()
	now := time.Now()
	if now.Sub(m.lastLive) < m.liveInterval {
		m.mu.Unlock()
		return
	}
	m.lastLive = now
	m.mu.Unlock()

	m.send(core.NewObjectUpdate(m.user.ID, obj))
}

func (m *Manager) BroadcastDelete(objectID string) {
	m.send(core.NewObjectDelete(m.user.ID, objectID))
}

func (m *Manager) BroadcastLayer(layer *core.Layer) {
	m.send(core.NewLayerUpdate(m.user.ID, layer))
}

func (m *Manager) BroadcastLayerDelete(layerID string) {
	m.send(core.NewLayerDelete(m.user.ID, layerID))
}

func (m *Manager) BroadcastHistory(step *core.HistoryStep) {
	m.send(core.NewHistoryUpdate(m.user.ID, step))
}

func (m *Manager) BroadcastHistoryNavigation(action core.NavAction, index int) {
	m.send(core.NewHistoryNavigation(m.user.ID, action, index))
}

// SendChat appends a chat line locally and broadcasts it.
func (m *Manager) SendChat(text string) {
	msg := &core.ChatMessage{
		ID:        ulid.Make().String(),
		UserID:    m.user.ID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	m.store.AppendChat(msg)
	m.BroadcastChat(msg)
}

func (m *Manager) BroadcastChat(msg *core.ChatMessage) {
	m.send(core.NewChat(m.user.ID, msg))
}

// BroadcastKick asks the targeted user's runtime to leave. Kicks are
// advisory and trust-based; the kicker also drops the target from its own
// presence list immediately.
func (m *Manager) BroadcastKick(targetID string) {
	m.store.RemoveUser(targetID)
	m.send(core.NewUserKick(m.user.ID, targetID))
}

// RequestSync asks every peer for a full snapshot.
func (m *Manager) RequestSync() {
	m.send(core.NewSyncRequest(m.user.ID))
}

func (m *Manager) send(msg *core.Message) {
	msg.SessionID = m.sessionID
	for _, t := range m.transports {
		if err := t.Broadcast(msg); err != nil {
			logrus.WithError(err).WithField("type", msg.Type).Warn("Broadcast failed")
		}
	}
}

// ---- inbound ---------------------------------------------------------------

// handle applies one inbound message. Self-originated echoes (anything
// carrying the local session or user id) are rejected before dispatch, so
// feeding our own broadcasts back through here never duplicates state.
func (m *Manager) handle(msg *core.Message) {
	if msg == nil {
		return
	}
	if msg.SessionID == m.sessionID || msg.UserID == m.user.ID {
		return
	}

	switch msg.Type {
	case core.MessageCursorMove:
		if msg.Point != nil {
			m.store.SetUserCursor(msg.UserID, *msg.Point)
		}
	case core.MessageObjectUpdate:
		m.store.ApplyRemoteObject(msg.Object)
	case core.MessageObjectDelete:
		m.store.ApplyRemoteObjectDelete(msg.ObjectID)
	case core.MessageLayerUpdate:
		m.store.ApplyRemoteLayer(msg.Layer)
	case core.MessageLayerDelete:
		m.store.ApplyRemoteLayerDelete(msg.LayerID)
	case core.MessageHistoryUpdate:
		m.store.ApplyRemoteHistory(msg.Step)
	case core.MessageHistoryNavigation:
		m.store.ApplyRemoteNavigation(msg.Action, msg.Index)
	case core.MessageChat:
		m.store.AppendChat(msg.Chat)
	case core.MessageUserJoin:
		m.handleJoin(msg.User)
	case core.MessageUserLeave:
		m.store.RemoveUser(msg.UserID)
	case core.MessageUserKick:
		m.handleKick(msg.TargetID)
	case core.MessageSyncRequest:
		m.send(core.NewSyncResponse(m.user.ID, m.store.SyncSnapshot()))
	case core.MessageSyncResponse:
		m.handleSyncResponse(msg.Snapshot)
	default:
		logrus.WithField("type", msg.Type).Debug("Ignoring unknown message type")
	}
}

// handleJoin adds the user and, when they were previously unknown,
// re-announces the local user (so two near-simultaneous joiners converge)
// and replays every known cursor so the newcomer sees the room without
// waiting for natural cursor traffic. The known-check is the loop guard.
func (m *Manager) handleJoin(user *core.User) {
	if user == nil || user.ID == "" {
		return
	}
	known := m.store.UpsertUser(user)
	if known {
		return
	}
	m.send(core.NewUserJoin(m.user))
	for _, u := range m.store.Users() {
		if u.Cursor != nil {
			m.send(core.NewCursorMove(u.ID, *u.Cursor))
		}
	}
}

// handleKick tears the session down when the kick names the local user;
// kicks aimed at others just prune the presence list.
func (m *Manager) handleKick(targetID string) {
	if targetID != m.user.ID {
		m.store.RemoveUser(targetID)
		return
	}
	logrus.Info("Kicked from session, disconnecting")
	m.Close()
	if m.onKicked != nil {
		m.onKicked()
	}
}

// handleSyncResponse adopts the remote snapshot only when the peer is ahead
// by the cardinality heuristic. This is approximate healing for lost
// messages, not a merge: equal-or-behind snapshots are ignored.
func (m *Manager) handleSyncResponse(snap *core.SyncSnapshot) {
	if snap == nil {
		return
	}
	ahead := len(snap.Objects) > m.store.ObjectCount() || len(snap.History) > m.store.HistoryLen()
	if !ahead {
		return
	}
	m.store.AdoptSnapshot(snap)
}
