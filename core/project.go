package core

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

type (
	// ProjectDocument is the persisted shape of a board: what the relay
	// stores and what loadProject consumes. History and settings are
	// optional; objects and layers are required top-level fields.
	ProjectDocument struct {
		Objects        []*CanvasObject `json:"objects"`
		Layers         []*Layer        `json:"layers"`
		CanvasSettings *CanvasSettings `json:"canvasSettings,omitempty"`
		History        []*HistoryStep  `json:"history,omitempty"`
	}

	// StoredMessage is a relayed wire message with the per-project sequence
	// number the relay assigned on append. Clients poll with the last
	// sequence they have seen.
	StoredMessage struct {
		Seq     int64    `json:"seq"`
		Message *Message `json:"message"`
	}

	// ProjectMeta is the light record returned when listing or creating
	// projects; it never includes the document body.
	ProjectMeta struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// ProjectStore is the relay's store-and-forward record: the shared
	// document plus a bounded, ordered message queue per project.
	ProjectStore interface {
		// CreateProject stores a new document and returns its id.
		CreateProject(ctx context.Context, name string, doc *ProjectDocument) (*ProjectMeta, error)

		// GetProject returns the document, or an error if the id is unknown.
		GetProject(ctx context.Context, id string) (*ProjectDocument, error)

		// SaveProject replaces the stored document for an existing project.
		SaveProject(ctx context.Context, id string, doc *ProjectDocument) error

		// AppendMessages queues wire messages for polling peers and returns
		// the sequence number of the last message appended.
		AppendMessages(ctx context.Context, id string, msgs []*Message) (int64, error)

		// MessagesSince returns queued messages with sequence numbers
		// strictly greater than after, in order.
		MessagesSince(ctx context.Context, id string, after int64) ([]StoredMessage, error)
	}
)

// NewProjectDocument returns an empty but loadable document with a single
// default layer.
func NewProjectDocument() *ProjectDocument {
	return &ProjectDocument{
		Objects: []*CanvasObject{},
		Layers: []*Layer{
			{ID: ulid.Make().String(), Name: "Layer 1", Visible: true, Opacity: 1},
		},
	}
}
