package core

import "time"

type (
	// Attribution records which user produced a history step, for display
	// in the history browser.
	Attribution struct {
		UserID   string `json:"userId"`
		UserName string `json:"userName,omitempty"`
		Color    string `json:"color,omitempty"`
	}

	// HistoryStep is one immutable snapshot in the linear undo/redo log.
	// The maps and slices inside are deep copies, never aliases of live
	// state.
	HistoryStep struct {
		Objects map[string]*CanvasObject `json:"objects"`
		Layers  []*Layer                 `json:"layers"`
		Label   string                   `json:"label,omitempty"`
		By      *Attribution             `json:"by,omitempty"`
		At      time.Time                `json:"at"`
	}

	// NavAction is a replicated undo/redo/jump instruction.
	NavAction string
)

const (
	NavUndo NavAction = "undo"
	NavRedo NavAction = "redo"
	NavJump NavAction = "jump"
)

// Clone returns a deep copy of the step.
func (s *HistoryStep) Clone() *HistoryStep {
	if s == nil {
		return nil
	}
	cp := HistoryStep{
		Objects: make(map[string]*CanvasObject, len(s.Objects)),
		Layers:  make([]*Layer, 0, len(s.Layers)),
		Label:   s.Label,
		At:      s.At,
	}
	for id, obj := range s.Objects {
		cp.Objects[id] = obj.Clone()
	}
	for _, l := range s.Layers {
		cp.Layers = append(cp.Layers, l.Clone())
	}
	if s.By != nil {
		by := *s.By
		cp.By = &by
	}
	return &cp
}
