package core

import (
	"encoding/json"
	"testing"
)

func TestCanvasObject_JSONKeepsPayloadType(t *testing.T) {
	obj := &CanvasObject{
		ID:        "o1",
		Name:      "sketch",
		Type:      ObjectPath,
		LayerID:   "l1",
		Transform: IdentityTransform(),
		Data: &PathData{
			Points: []Point{{X: 0, Y: 0}, {X: 4, Y: 2}},
			Stroke: StrokeStyle{Color: "#1a1a1a", Width: 2, Opacity: 1},
		},
	}

	b, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var decoded CanvasObject
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	path, ok := decoded.Data.(*PathData)
	if !ok {
		t.Fatalf("Payload decoded to wrong type: %T", decoded.Data)
	}
	if len(path.Points) != 2 || path.Points[1].X != 4 {
		t.Errorf("Payload content mismatch: %+v", path.Points)
	}
	if decoded.Transform.ScaleX != 1 || decoded.Transform.ScaleY != 1 {
		t.Errorf("Transform mismatch: %+v", decoded.Transform)
	}
}

func TestCanvasObject_UnknownTypeRejected(t *testing.T) {
	raw := `{"id":"o1","type":"hologram","layerId":"l1","data":{}}`

	var decoded CanvasObject
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		t.Error("Unmarshal() accepted an unknown object type")
	}
}

func TestCanvasObject_NullDataGetsEmptyPayload(t *testing.T) {
	raw := `{"id":"o1","type":"note","layerId":"l1"}`

	var decoded CanvasObject
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if _, ok := decoded.Data.(*NoteData); !ok {
		t.Errorf("Missing data field decoded to %T, want *NoteData", decoded.Data)
	}
}

func TestObjectData_DataKindAgreesWithType(t *testing.T) {
	cases := []struct {
		data ObjectData
		want ObjectType
	}{
		{&PathData{}, ObjectPath},
		{&TextData{}, ObjectText},
		{&ShapeData{Kind: ShapeEllipse}, ObjectShape},
		{&NoteData{}, ObjectNote},
		{&ImageData{}, ObjectImage},
	}
	for _, tc := range cases {
		if got := tc.data.DataKind(); got != tc.want {
			t.Errorf("DataKind mismatch for %T: got %q, want %q", tc.data, got, tc.want)
		}
	}

	// The shape payload's own Kind field is independent of the type tag.
	shape := &ShapeData{Kind: ShapeArrow}
	if shape.Kind != ShapeArrow || shape.DataKind() != ObjectShape {
		t.Errorf("Shape kind mismatch: field %q, tag %q", shape.Kind, shape.DataKind())
	}
}

func TestCanvasObject_CloneIsDeep(t *testing.T) {
	obj := &CanvasObject{
		ID:   "o1",
		Type: ObjectPath,
		Data: &PathData{Points: []Point{{X: 1, Y: 1}}},
	}

	cp := obj.Clone()
	cp.Data.(*PathData).Points[0].X = 99

	if obj.Data.(*PathData).Points[0].X != 1 {
		t.Error("Clone shares point storage with the original")
	}
}

func TestMessage_EnvelopeRoundTrip(t *testing.T) {
	msg := NewObjectUpdate("alice", &CanvasObject{
		ID:        "o1",
		Type:      ObjectShape,
		LayerID:   "l1",
		Transform: IdentityTransform(),
		Data:      &ShapeData{Kind: ShapeEllipse, Width: 10, Height: 20},
	})
	msg.SessionID = "session-1"

	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if decoded.Type != MessageObjectUpdate || decoded.SessionID != "session-1" {
		t.Errorf("Envelope mismatch: type %q, session %q", decoded.Type, decoded.SessionID)
	}
	shape, ok := decoded.Object.Data.(*ShapeData)
	if !ok {
		t.Fatalf("Nested payload decoded to wrong type: %T", decoded.Object.Data)
	}
	if shape.Kind != ShapeEllipse {
		t.Errorf("Shape kind mismatch: got %q", shape.Kind)
	}
}
