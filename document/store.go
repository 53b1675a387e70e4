package document

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// DefaultMaxUndoSteps bounds the linear history unless overridden.
const DefaultMaxUndoSteps = 50

type (
	// Broadcaster is the outbound half of the synchronization layer, as
	// seen from the store. Local mutations are announced through it in
	// strict mutate → history → broadcast order; remote-flagged mutations
	// never touch it.
	Broadcaster interface {
		BroadcastObject(obj *core.CanvasObject)
		BroadcastObjectLive(obj *core.CanvasObject)
		BroadcastDelete(objectID string)
		BroadcastLayer(layer *core.Layer)
		BroadcastLayerDelete(layerID string)
		// BroadcastHistory carries a full snapshot step. Only history
		// navigation sends it; per-mutation changes replicate through the
		// object and layer messages above.
		BroadcastHistory(step *core.HistoryStep)
		BroadcastHistoryNavigation(action core.NavAction, index int)
	}

	// Identity attributes history steps to the local user.
	Identity struct {
		UserID string
		Name   string
		Color  string
	}

	// Options configures a Store. Zero values get sensible defaults.
	Options struct {
		MaxUndoSteps int
		Identity     Identity
		Settings     *core.CanvasSettings
	}

	// ObjectPatch is a partial object update; nil fields are left alone.
	ObjectPatch struct {
		Name      *string
		LayerID   *string
		Transform *core.Transform
		Data      core.ObjectData
	}

	// LayerPatch is a partial layer update; nil fields are left alone.
	// ObjectIDs reorders the layer's paint order and may only permute ids
	// the layer already owns.
	LayerPatch struct {
		Name      *string
		Visible   *bool
		Locked    *bool
		Opacity   *float64
		ObjectIDs []string
	}
)

// Store is the single writable source of truth for a board: objects, layers,
// the linear undo/redo history, and the presence/chat records that ride along
// with them. Every consumer, from tools to the synchronization layer to the
// renderer, goes through its methods; nothing reaches into the maps directly.
//
// All operations are total over malformed input: a mutation or message
// targeting an id that is no longer (or not yet) present is a silent no-op,
// because in a multi-writer board that is an expected race, not a bug.
type Store struct {
	mu sync.RWMutex

	objects map[string]*core.CanvasObject
	layers  []*core.Layer

	history      []*core.HistoryStep
	historyIndex int
	maxUndoSteps int

	users map[string]*core.User
	chat  []*core.ChatMessage

	settings core.CanvasSettings
	identity Identity

	broadcaster Broadcaster
}

// NewStore builds a store seeded with one empty default layer and a
// single-entry history, so undo at the boundary is a no-op rather than a
// special case.
func NewStore(opts Options) *Store {
	if opts.MaxUndoSteps <= 0 {
		opts.MaxUndoSteps = DefaultMaxUndoSteps
	}
	s := &Store{
		objects:      make(map[string]*core.CanvasObject),
		users:        make(map[string]*core.User),
		maxUndoSteps: opts.MaxUndoSteps,
		identity:     opts.Identity,
		settings:     core.CanvasSettings{Width: 1920, Height: 1080, Background: "#ffffff"},
	}
	if opts.Settings != nil {
		s.settings = *opts.Settings
	}
	s.layers = []*core.Layer{{
		ID:      ulid.Make().String(),
		Name:    "Layer 1",
		Visible: true,
		Opacity: 1,
	}}
	s.history = []*core.HistoryStep{s.snapshotLocked("Initial state")}
	s.historyIndex = 0
	return s
}

// SetBroadcaster attaches the synchronization layer. Pass nil to detach, e.g.
// on session teardown.
func (s *Store) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	s.broadcaster = b
	s.mu.Unlock()
}

// ---- local mutations -------------------------------------------------------

// AddObject inserts the object into its layer and appends a history step. An
// empty ID is assigned; an unknown LayerID falls back to the bottom layer so
// a concurrent layer delete does not drop the object.
func (s *Store) AddObject(obj *core.CanvasObject) {
	if obj == nil {
		return
	}
	s.mu.Lock()
	stored, ok := s.insertObjectLocked(obj)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.appendHistoryLocked("Add " + string(stored.Type))
	b := s.broadcaster
	out := stored.Clone()
	s.mu.Unlock()

	if b != nil {
		b.BroadcastObject(out)
	}
}

// UpdateObject applies a partial update and appends a history step. Unknown
// ids are a silent no-op.
func (s *Store) UpdateObject(id string, patch ObjectPatch) {
	s.mu.Lock()
	obj, ok := s.patchObjectLocked(id, patch)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.appendHistoryLocked("Update " + displayName(obj))
	b := s.broadcaster
	out := obj.Clone()
	s.mu.Unlock()

	if b != nil {
		b.BroadcastObject(out)
	}
}

// UpdateObjectTransient applies a partial update without growing history,
// for in-progress drags and live typing. The broadcast goes out on the
// throttled live path; the gesture's final UpdateObject commits the step.
func (s *Store) UpdateObjectTransient(id string, patch ObjectPatch) {
	s.mu.Lock()
	obj, ok := s.patchObjectLocked(id, patch)
	if !ok {
		s.mu.Unlock()
		return
	}
	b := s.broadcaster
	out := obj.Clone()
	s.mu.Unlock()

	if b != nil {
		b.BroadcastObjectLive(out)
	}
}

// ApplyTransforms commits final transforms for a whole gesture at once:
// every selected object moves in one history step instead of one per object.
// Unknown ids are skipped.
func (s *Store) ApplyTransforms(transforms map[string]core.Transform, label string) {
	if len(transforms) == 0 {
		return
	}
	s.mu.Lock()
	changed := make([]*core.CanvasObject, 0, len(transforms))
	for id, t := range transforms {
		obj, ok := s.objects[id]
		if !ok {
			continue
		}
		obj.Transform = t
		changed = append(changed, obj.Clone())
	}
	if len(changed) == 0 {
		s.mu.Unlock()
		return
	}
	if label == "" {
		label = "Transform"
	}
	s.appendHistoryLocked(label)
	b := s.broadcaster
	s.mu.Unlock()

	if b != nil {
		for _, obj := range changed {
			b.BroadcastObject(obj)
		}
	}
}

// RevertTransforms puts objects back to the given transforms without
// recording a history step, for cancelled gestures. The broadcast goes out
// on the unthrottled path so peers drop the aborted preview immediately
// instead of waiting out the live throttle. Unknown ids are skipped.
func (s *Store) RevertTransforms(transforms map[string]core.Transform) {
	if len(transforms) == 0 {
		return
	}
	s.mu.Lock()
	changed := make([]*core.CanvasObject, 0, len(transforms))
	for id, tr := range transforms {
		obj, ok := s.objects[id]
		if !ok {
			continue
		}
		obj.Transform = tr
		changed = append(changed, obj.Clone())
	}
	b := s.broadcaster
	s.mu.Unlock()

	if b != nil {
		for _, obj := range changed {
			b.BroadcastObject(obj)
		}
	}
}

// DeleteObject removes the object and its layer membership, then appends a
// history step. Unknown ids are a silent no-op.
func (s *Store) DeleteObject(id string) {
	s.mu.Lock()
	obj, ok := s.objects[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	name := displayName(obj)
	s.removeObjectLocked(id)
	s.appendHistoryLocked("Delete " + name)
	b := s.broadcaster
	s.mu.Unlock()

	if b != nil {
		b.BroadcastDelete(id)
	}
}

// AddLayer appends a layer to the top of the stack.
func (s *Store) AddLayer(layer *core.Layer) {
	if layer == nil {
		return
	}
	s.mu.Lock()
	stored := layer.Clone()
	if stored.ID == "" {
		stored.ID = ulid.Make().String()
	}
	if s.layerLocked(stored.ID) != nil {
		s.mu.Unlock()
		return
	}
	stored.ObjectIDs = nil // a new layer starts empty
	if stored.Opacity == 0 {
		stored.Opacity = 1
	}
	s.layers = append(s.layers, stored)
	s.appendHistoryLocked("Add layer " + stored.Name)
	b := s.broadcaster
	out := stored.Clone()
	s.mu.Unlock()

	if b != nil {
		b.BroadcastLayer(out)
	}
}

// UpdateLayer applies a partial update to a layer. A reorder in
// patch.ObjectIDs is honored only for ids the layer already owns, which keeps
// membership exclusive no matter what a racing peer sent.
func (s *Store) UpdateLayer(id string, patch LayerPatch) {
	s.mu.Lock()
	layer := s.layerLocked(id)
	if layer == nil {
		s.mu.Unlock()
		return
	}
	applyLayerPatch(layer, patch)
	s.appendHistoryLocked("Update layer " + layer.Name)
	b := s.broadcaster
	out := layer.Clone()
	s.mu.Unlock()

	if b != nil {
		b.BroadcastLayer(out)
	}
}

// DeleteLayer removes the layer and cascades to every object it owns.
func (s *Store) DeleteLayer(id string) {
	s.mu.Lock()
	layer := s.layerLocked(id)
	if layer == nil {
		s.mu.Unlock()
		return
	}
	name := layer.Name
	s.removeLayerLocked(id)
	s.appendHistoryLocked("Delete layer " + name)
	b := s.broadcaster
	s.mu.Unlock()

	if b != nil {
		b.BroadcastLayerDelete(id)
	}
}

// ---- history ---------------------------------------------------------------

// Undo steps back one history entry and restores its snapshot. A no-op at the
// lower boundary.
func (s *Store) Undo() {
	s.navigate(core.NavUndo, -1)
}

// Redo steps forward one history entry. A no-op at the upper boundary.
func (s *Store) Redo() {
	s.navigate(core.NavRedo, -1)
}

// SetHistoryIndex jumps to an arbitrary recorded step (time travel). Out of
// range indices are a no-op.
func (s *Store) SetHistoryIndex(i int) {
	s.navigate(core.NavJump, i)
}

func (s *Store) navigate(action core.NavAction, target int) {
	s.mu.Lock()
	next := s.historyIndex
	switch action {
	case core.NavUndo:
		next--
	case core.NavRedo:
		next++
	case core.NavJump:
		next = target
	}
	if next < 0 || next >= len(s.history) || next == s.historyIndex {
		s.mu.Unlock()
		return
	}
	s.historyIndex = next
	s.restoreLocked(s.history[next])
	step := s.history[next].Clone()
	index := s.historyIndex
	b := s.broadcaster
	s.mu.Unlock()

	if b != nil {
		// Navigation replays on peers whose history still lines up; the
		// snapshot heals the ones whose history has diverged.
		b.BroadcastHistoryNavigation(action, index)
		b.BroadcastHistory(step)
	}
}

// HistoryLen returns the number of recorded steps.
func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// HistoryIndex returns the current position in the history log.
func (s *Store) HistoryIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyIndex
}

// HistorySteps returns clones of the recorded steps, oldest first.
func (s *Store) HistorySteps() []*core.HistoryStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	steps := make([]*core.HistoryStep, 0, len(s.history))
	for _, st := range s.history {
		steps = append(steps, st.Clone())
	}
	return steps
}

// ---- remote-flagged entry points -------------------------------------------

// ApplyRemoteObject upserts an object from a peer. Live state changes, local
// history does not grow, and nothing is re-broadcast.
func (s *Store) ApplyRemoteObject(obj *core.CanvasObject) {
	if obj == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[obj.ID]; ok {
		// Full-object replace, last writer wins.
		patch := ObjectPatch{Name: &obj.Name, LayerID: &obj.LayerID, Transform: &obj.Transform, Data: obj.Data}
		s.patchObjectLocked(obj.ID, patch)
		return
	}
	s.insertObjectLocked(obj)
}

// ApplyRemoteObjectDelete removes an object named by a peer; unknown ids are
// the expected delete race and ignored.
func (s *Store) ApplyRemoteObjectDelete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		return
	}
	s.removeObjectLocked(id)
}

// ApplyRemoteLayer upserts a layer from a peer. Membership claims are honored
// only for ids known locally, and those ids are pulled out of any other layer
// so membership stays exclusive.
func (s *Store) ApplyRemoteLayer(layer *core.Layer) {
	if layer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	claimed := make([]string, 0, len(layer.ObjectIDs))
	for _, id := range layer.ObjectIDs {
		if _, ok := s.objects[id]; ok {
			claimed = append(claimed, id)
		}
	}

	existing := s.layerLocked(layer.ID)
	if existing == nil {
		existing = &core.Layer{ID: layer.ID}
		s.layers = append(s.layers, existing)
	}
	existing.Name = layer.Name
	existing.Visible = layer.Visible
	existing.Locked = layer.Locked
	existing.Opacity = layer.Opacity
	existing.ObjectIDs = claimed

	for _, id := range claimed {
		for _, other := range s.layers {
			if other.ID != layer.ID {
				other.Remove(id)
			}
		}
		if obj, ok := s.objects[id]; ok {
			obj.LayerID = layer.ID
		}
	}
}

// ApplyRemoteLayerDelete removes a layer and cascades to its objects, without
// touching local history.
func (s *Store) ApplyRemoteLayerDelete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layerLocked(id) == nil {
		return
	}
	s.removeLayerLocked(id)
}

// ApplyRemoteHistory adopts a peer's history step as live state. The step is
// not appended locally: each peer keeps its own history array.
func (s *Store) ApplyRemoteHistory(step *core.HistoryStep) {
	if step == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked(step)
}

// ApplyRemoteNavigation replays a peer's undo/redo/jump against the local
// history array, if the move is in range here.
func (s *Store) ApplyRemoteNavigation(action core.NavAction, target int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.historyIndex
	switch action {
	case core.NavUndo:
		next--
	case core.NavRedo:
		next++
	case core.NavJump:
		next = target
	default:
		return
	}
	if next < 0 || next >= len(s.history) || next == s.historyIndex {
		return
	}
	s.historyIndex = next
	s.restoreLocked(s.history[next])
}

// AdoptSnapshot replaces live state with a peer's catch-up snapshot. Users
// are merged rather than replaced so local presence survives; history is
// adopted only when the remote log is longer than ours.
func (s *Store) AdoptSnapshot(snap *core.SyncSnapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects = make(map[string]*core.CanvasObject, len(snap.Objects))
	for id, obj := range snap.Objects {
		s.objects[id] = obj.Clone()
	}
	s.layers = make([]*core.Layer, 0, len(snap.Layers))
	for _, l := range snap.Layers {
		s.layers = append(s.layers, l.Clone())
	}
	for _, u := range snap.Users {
		if u == nil || u.ID == "" {
			continue
		}
		s.users[u.ID] = u.Clone()
	}
	if len(snap.History) > len(s.history) {
		s.history = make([]*core.HistoryStep, 0, len(snap.History))
		for _, st := range snap.History {
			s.history = append(s.history, st.Clone())
		}
		s.historyIndex = snap.HistoryIndex
		if s.historyIndex < 0 {
			s.historyIndex = 0
		}
		if s.historyIndex >= len(s.history) {
			s.historyIndex = len(s.history) - 1
		}
	}
	logrus.WithFields(logrus.Fields{
		"objects": len(s.objects),
		"layers":  len(s.layers),
		"history": len(s.history),
	}).Debug("Adopted catch-up snapshot")
}

// ---- presence & chat -------------------------------------------------------

// UpsertUser records a user from a join broadcast. The return value reports
// whether the user was already known, which the join handshake uses as its
// re-broadcast loop guard.
func (s *Store) UpsertUser(u *core.User) (known bool) {
	if u == nil || u.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, known = s.users[u.ID]
	cp := u.Clone()
	if cp.LastActive.IsZero() {
		cp.LastActive = time.Now()
	}
	s.users[u.ID] = cp
	return known
}

// SetUserCursor refreshes a user's cursor and activity clock. Cursor traffic
// from a not-yet-joined user creates a minimal record rather than being lost
// to the arrival-order race.
func (s *Store) SetUserCursor(userID string, p core.Point) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		u = &core.User{ID: userID}
		s.users[userID] = u
	}
	cursor := p
	u.Cursor = &cursor
	u.LastActive = time.Now()
}

// RemoveUser drops a user from the authoritative list (leave or kick).
func (s *Store) RemoveUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// Users returns clones of every known user, ordered by id.
func (s *Store) Users() []*core.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usersLocked()
}

// ActiveUsers returns users seen within the inactivity window.
func (s *Store) ActiveUsers(now time.Time) []*core.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*core.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Active(now) {
			users = append(users, u.Clone())
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// AppendChat appends to the chat log, assigning an id and timestamp when the
// caller left them empty.
func (s *Store) AppendChat(msg *core.ChatMessage) {
	if msg == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *msg
	if cp.ID == "" {
		cp.ID = ulid.Make().String()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.chat = append(s.chat, &cp)
}

// ChatLog returns a copy of the chat log, oldest first.
func (s *Store) ChatLog() []*core.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := make([]*core.ChatMessage, 0, len(s.chat))
	for _, m := range s.chat {
		cp := *m
		log = append(log, &cp)
	}
	return log
}

// ---- queries & snapshots ---------------------------------------------------

// Object returns a clone of the object, or nil if unknown.
func (s *Store) Object(id string) *core.CanvasObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[id].Clone()
}

// Objects returns clones of all live objects keyed by id.
func (s *Store) Objects() map[string]*core.CanvasObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*core.CanvasObject, len(s.objects))
	for id, obj := range s.objects {
		out[id] = obj.Clone()
	}
	return out
}

// ObjectCount returns the number of live objects.
func (s *Store) ObjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Layers returns clones of the layer stack, bottom first.
func (s *Store) Layers() []*core.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Layer, 0, len(s.layers))
	for _, l := range s.layers {
		out = append(out, l.Clone())
	}
	return out
}

// Layer returns a clone of the layer, or nil if unknown.
func (s *Store) Layer(id string) *core.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layerLocked(id).Clone()
}

// Settings returns the board-level canvas settings.
func (s *Store) Settings() core.CanvasSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SyncSnapshot builds the full-state payload for a SYNC_RESPONSE.
func (s *Store) SyncSnapshot() *core.SyncSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &core.SyncSnapshot{
		Objects:      make(map[string]*core.CanvasObject, len(s.objects)),
		Layers:       make([]*core.Layer, 0, len(s.layers)),
		Users:        s.usersLocked(),
		History:      make([]*core.HistoryStep, 0, len(s.history)),
		HistoryIndex: s.historyIndex,
	}
	for id, obj := range s.objects {
		snap.Objects[id] = obj.Clone()
	}
	for _, l := range s.layers {
		snap.Layers = append(snap.Layers, l.Clone())
	}
	for _, st := range s.history {
		snap.History = append(snap.History, st.Clone())
	}
	return snap
}

// SnapshotDocument serializes live state into the persisted project shape,
// objects in paint order.
func (s *Store) SnapshotDocument() *core.ProjectDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := &core.ProjectDocument{
		Objects: make([]*core.CanvasObject, 0, len(s.objects)),
		Layers:  make([]*core.Layer, 0, len(s.layers)),
	}
	settings := s.settings
	doc.CanvasSettings = &settings
	for _, l := range s.layers {
		doc.Layers = append(doc.Layers, l.Clone())
		for _, id := range l.ObjectIDs {
			if obj, ok := s.objects[id]; ok {
				doc.Objects = append(doc.Objects, obj.Clone())
			}
		}
	}
	for _, st := range s.history {
		doc.History = append(doc.History, st.Clone())
	}
	return doc
}

// LoadProject replaces live state with the supplied document and seeds a
// fresh single-entry history. The load is all-or-nothing: a document missing
// its objects or layers fields is rejected and the live document is left
// untouched.
func (s *Store) LoadProject(doc *core.ProjectDocument) error {
	if doc == nil || doc.Objects == nil || doc.Layers == nil {
		return fmt.Errorf("project document is missing required objects/layers fields")
	}

	layers := make([]*core.Layer, 0, len(doc.Layers))
	byID := make(map[string]*core.Layer, len(doc.Layers))
	for _, l := range doc.Layers {
		if l == nil || l.ID == "" || byID[l.ID] != nil {
			return fmt.Errorf("project document contains an invalid layer entry")
		}
		cp := l.Clone()
		cp.ObjectIDs = nil // rebuilt from the object list below
		layers = append(layers, cp)
		byID[cp.ID] = cp
	}
	if len(layers) == 0 {
		layers = append(layers, &core.Layer{ID: ulid.Make().String(), Name: "Layer 1", Visible: true, Opacity: 1})
	}

	objects := make(map[string]*core.CanvasObject, len(doc.Objects))
	for _, obj := range doc.Objects {
		if obj == nil || obj.ID == "" {
			return fmt.Errorf("project document contains an invalid object entry")
		}
		cp := obj.Clone()
		owner := byID[cp.LayerID]
		if owner == nil {
			owner = layers[0]
			cp.LayerID = owner.ID
		}
		if _, dup := objects[cp.ID]; dup {
			return fmt.Errorf("project document contains duplicate object id %s", cp.ID)
		}
		objects[cp.ID] = cp
		owner.ObjectIDs = append(owner.ObjectIDs, cp.ID)
	}

	s.mu.Lock()
	s.objects = objects
	s.layers = layers
	if doc.CanvasSettings != nil {
		s.settings = *doc.CanvasSettings
	}
	s.history = []*core.HistoryStep{s.snapshotLocked("Loaded project")}
	s.historyIndex = 0
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"objects": len(objects),
		"layers":  len(layers),
	}).Info("Project loaded")
	return nil
}

// ---- internals -------------------------------------------------------------

func (s *Store) layerLocked(id string) *core.Layer {
	for _, l := range s.layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// insertObjectLocked stores a clone of obj and registers it with its owning
// layer, falling back to the bottom layer when the referenced one is gone.
func (s *Store) insertObjectLocked(obj *core.CanvasObject) (*core.CanvasObject, bool) {
	if len(s.layers) == 0 {
		return nil, false
	}
	stored := obj.Clone()
	if stored.ID == "" {
		stored.ID = ulid.Make().String()
	}
	layer := s.layerLocked(stored.LayerID)
	if layer == nil {
		layer = s.layers[0]
		stored.LayerID = layer.ID
	}
	if existing, ok := s.objects[stored.ID]; ok && existing.LayerID != stored.LayerID {
		if old := s.layerLocked(existing.LayerID); old != nil {
			old.Remove(stored.ID)
		}
	}
	s.objects[stored.ID] = stored
	if !layer.Contains(stored.ID) {
		layer.ObjectIDs = append(layer.ObjectIDs, stored.ID)
	}
	return stored, true
}

func (s *Store) patchObjectLocked(id string, patch ObjectPatch) (*core.CanvasObject, bool) {
	obj, ok := s.objects[id]
	if !ok {
		return nil, false
	}
	if patch.Name != nil {
		obj.Name = *patch.Name
	}
	if patch.Transform != nil {
		obj.Transform = *patch.Transform
	}
	if patch.Data != nil && patch.Data.DataKind() == obj.Type {
		obj.Data = patch.Data.CloneData()
	}
	if patch.LayerID != nil && *patch.LayerID != obj.LayerID {
		// The move is skipped when the target layer vanished; the object
		// keeps its current owner instead of becoming orphaned.
		if target := s.layerLocked(*patch.LayerID); target != nil {
			if old := s.layerLocked(obj.LayerID); old != nil {
				old.Remove(id)
			}
			obj.LayerID = target.ID
			if !target.Contains(id) {
				target.ObjectIDs = append(target.ObjectIDs, id)
			}
		}
	}
	return obj, true
}

func (s *Store) removeObjectLocked(id string) {
	obj := s.objects[id]
	delete(s.objects, id)
	if obj != nil {
		if l := s.layerLocked(obj.LayerID); l != nil {
			l.Remove(id)
		}
	}
	// Sweep any stray membership left by a racing layer update.
	for _, l := range s.layers {
		l.Remove(id)
	}
}

func (s *Store) removeLayerLocked(id string) {
	for i, l := range s.layers {
		if l.ID != id {
			continue
		}
		for _, objID := range l.ObjectIDs {
			delete(s.objects, objID)
		}
		s.layers = append(s.layers[:i], s.layers[i+1:]...)
		return
	}
}

// snapshotLocked deep-copies live objects and layers into a history step.
func (s *Store) snapshotLocked(label string) *core.HistoryStep {
	step := &core.HistoryStep{
		Objects: make(map[string]*core.CanvasObject, len(s.objects)),
		Layers:  make([]*core.Layer, 0, len(s.layers)),
		Label:   label,
		At:      time.Now(),
	}
	for id, obj := range s.objects {
		step.Objects[id] = obj.Clone()
	}
	for _, l := range s.layers {
		step.Layers = append(step.Layers, l.Clone())
	}
	if s.identity.UserID != "" {
		step.By = &core.Attribution{
			UserID:   s.identity.UserID,
			UserName: s.identity.Name,
			Color:    s.identity.Color,
		}
	}
	return step
}

// appendHistoryLocked truncates the redo branch, appends a fresh snapshot,
// and evicts the oldest entries once the cap is exceeded. Returns a clone of
// the appended step.
func (s *Store) appendHistoryLocked(label string) *core.HistoryStep {
	s.history = s.history[:s.historyIndex+1]
	s.history = append(s.history, s.snapshotLocked(label))
	s.historyIndex = len(s.history) - 1
	for len(s.history) > s.maxUndoSteps {
		s.history = s.history[1:]
		s.historyIndex--
	}
	if s.historyIndex < 0 {
		s.historyIndex = 0
	}
	return s.history[s.historyIndex].Clone()
}

// restoreLocked replaces live objects and layers with deep copies of the
// given step. Presence and chat are untouched: they are not part of history.
func (s *Store) restoreLocked(step *core.HistoryStep) {
	s.objects = make(map[string]*core.CanvasObject, len(step.Objects))
	for id, obj := range step.Objects {
		s.objects[id] = obj.Clone()
	}
	s.layers = make([]*core.Layer, 0, len(step.Layers))
	for _, l := range step.Layers {
		s.layers = append(s.layers, l.Clone())
	}
}

func (s *Store) usersLocked() []*core.User {
	users := make([]*core.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// applyLayerPatch applies the non-nil fields. A reorder keeps exactly the
// current members: ids not owned by the layer are ignored, owned ids missing
// from the patch keep their relative order at the end.
func applyLayerPatch(layer *core.Layer, patch LayerPatch) {
	if patch.Name != nil {
		layer.Name = *patch.Name
	}
	if patch.Visible != nil {
		layer.Visible = *patch.Visible
	}
	if patch.Locked != nil {
		layer.Locked = *patch.Locked
	}
	if patch.Opacity != nil {
		layer.Opacity = *patch.Opacity
	}
	if patch.ObjectIDs == nil {
		return
	}
	members := make(map[string]bool, len(layer.ObjectIDs))
	for _, id := range layer.ObjectIDs {
		members[id] = true
	}
	reordered := make([]string, 0, len(layer.ObjectIDs))
	seen := make(map[string]bool, len(layer.ObjectIDs))
	for _, id := range patch.ObjectIDs {
		if members[id] && !seen[id] {
			reordered = append(reordered, id)
			seen[id] = true
		}
	}
	for _, id := range layer.ObjectIDs {
		if !seen[id] {
			reordered = append(reordered, id)
		}
	}
	layer.ObjectIDs = reordered
}

func displayName(obj *core.CanvasObject) string {
	if obj.Name != "" {
		return obj.Name
	}
	return string(obj.Type)
}
