package core

type (
	// Layer is an ordered, named grouping of objects. ObjectIDs holds the
	// paint order, back-to-front; every id in it must exist in the object
	// set, and no id may appear in two layers at once.
	Layer struct {
		ID        string   `json:"id"`
		Name      string   `json:"name"`
		Visible   bool     `json:"visible"`
		Locked    bool     `json:"locked"`
		Opacity   float64  `json:"opacity"`
		ObjectIDs []string `json:"objectIds"`
	}

	// CanvasSettings carries board-level display properties. It travels
	// with the persisted project document but is never replicated per-edit.
	CanvasSettings struct {
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
		Background string  `json:"background"`
	}
)

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	if l == nil {
		return nil
	}
	cp := *l
	cp.ObjectIDs = append([]string(nil), l.ObjectIDs...)
	return &cp
}

// Contains reports whether the layer owns the given object id.
func (l *Layer) Contains(objectID string) bool {
	for _, id := range l.ObjectIDs {
		if id == objectID {
			return true
		}
	}
	return false
}

// Remove deletes the object id from the layer's paint order, if present.
func (l *Layer) Remove(objectID string) {
	for i, id := range l.ObjectIDs {
		if id == objectID {
			l.ObjectIDs = append(l.ObjectIDs[:i], l.ObjectIDs[i+1:]...)
			return
		}
	}
}
