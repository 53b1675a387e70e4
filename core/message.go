package core

// MessageType tags a wire message. The envelope is a flat tagged record; no
// version field exists, schema evolution is not handled.
type MessageType string

const (
	MessageCursorMove        MessageType = "CURSOR_MOVE"
	MessageObjectUpdate      MessageType = "OBJECT_UPDATE"
	MessageObjectDelete      MessageType = "OBJECT_DELETE"
	MessageLayerUpdate       MessageType = "LAYER_UPDATE"
	MessageLayerDelete       MessageType = "LAYER_DELETE"
	MessageHistoryUpdate     MessageType = "HISTORY_UPDATE"
	MessageHistoryNavigation MessageType = "HISTORY_NAVIGATION"
	MessageChat              MessageType = "CHAT_MESSAGE"
	MessageUserJoin          MessageType = "USER_JOIN"
	MessageUserLeave         MessageType = "USER_LEAVE"
	MessageUserKick          MessageType = "USER_KICK"
	MessageSyncRequest       MessageType = "SYNC_REQUEST"
	MessageSyncResponse      MessageType = "SYNC_RESPONSE"
)

type (
	// Message is the wire envelope shared by both transport tiers. UserID
	// identifies the originating user and SessionID the originating
	// runtime; receivers drop anything carrying their own session id.
	// Only the fields matching Type are populated.
	Message struct {
		Type      MessageType `json:"type"`
		UserID    string      `json:"userId"`
		SessionID string      `json:"sessionId,omitempty"`

		Point    *Point        `json:"point,omitempty"`
		Object   *CanvasObject `json:"object,omitempty"`
		ObjectID string        `json:"objectId,omitempty"`
		Layer    *Layer        `json:"layer,omitempty"`
		LayerID  string        `json:"layerId,omitempty"`
		Step     *HistoryStep  `json:"step,omitempty"`
		Action   NavAction     `json:"action,omitempty"`
		Index    int           `json:"index,omitempty"`
		Chat     *ChatMessage  `json:"chat,omitempty"`
		User     *User         `json:"user,omitempty"`
		TargetID string        `json:"targetId,omitempty"`
		Snapshot *SyncSnapshot `json:"snapshot,omitempty"`
	}

	// SyncSnapshot is the full-state payload of a SYNC_RESPONSE: everything
	// a straggler needs to heal missed messages.
	SyncSnapshot struct {
		Objects      map[string]*CanvasObject `json:"objects"`
		Layers       []*Layer                 `json:"layers"`
		Users        []*User                  `json:"users"`
		History      []*HistoryStep           `json:"history"`
		HistoryIndex int                      `json:"historyIndex"`
	}
)

// NewCursorMove reports a user's cursor position. During the join handshake a
// peer relays other users' last known cursors, so userID is not necessarily
// the sending runtime's own user.
func NewCursorMove(userID string, p Point) *Message {
	return &Message{Type: MessageCursorMove, UserID: userID, Point: &p}
}

// NewObjectUpdate carries a full-object replace, used for create and update
// alike.
func NewObjectUpdate(userID string, obj *CanvasObject) *Message {
	return &Message{Type: MessageObjectUpdate, UserID: userID, Object: obj}
}

func NewObjectDelete(userID, objectID string) *Message {
	return &Message{Type: MessageObjectDelete, UserID: userID, ObjectID: objectID}
}

func NewLayerUpdate(userID string, layer *Layer) *Message {
	return &Message{Type: MessageLayerUpdate, UserID: userID, Layer: layer}
}

func NewLayerDelete(userID, layerID string) *Message {
	return &Message{Type: MessageLayerDelete, UserID: userID, LayerID: layerID}
}

// NewHistoryUpdate carries the step a peer just appended or navigated to, so
// receivers converge on live state even when their local history arrays have
// diverged in length.
func NewHistoryUpdate(userID string, step *HistoryStep) *Message {
	return &Message{Type: MessageHistoryUpdate, UserID: userID, Step: step}
}

func NewHistoryNavigation(userID string, action NavAction, index int) *Message {
	return &Message{Type: MessageHistoryNavigation, UserID: userID, Action: action, Index: index}
}

func NewChat(userID string, chat *ChatMessage) *Message {
	return &Message{Type: MessageChat, UserID: userID, Chat: chat}
}

func NewUserJoin(user *User) *Message {
	return &Message{Type: MessageUserJoin, UserID: user.ID, User: user}
}

func NewUserLeave(userID string) *Message {
	return &Message{Type: MessageUserLeave, UserID: userID}
}

func NewUserKick(userID, targetID string) *Message {
	return &Message{Type: MessageUserKick, UserID: userID, TargetID: targetID}
}

func NewSyncRequest(userID string) *Message {
	return &Message{Type: MessageSyncRequest, UserID: userID}
}

func NewSyncResponse(userID string, snapshot *SyncSnapshot) *Message {
	return &Message{Type: MessageSyncResponse, UserID: userID, Snapshot: snapshot}
}
