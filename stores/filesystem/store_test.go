package filesystem

import (
	"context"
	"testing"

	"github.com/anlyetim/TeamPad-sub001/core"
)

func TestCreateAndGetProject(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	meta, err := store.CreateProject(ctx, "Board", core.NewProjectDocument())
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}

	doc, err := store.GetProject(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetProject() failed: %v", err)
	}
	if len(doc.Layers) != 1 {
		t.Errorf("Layer count mismatch: got %d, want 1", len(doc.Layers))
	}

	if _, err := store.GetProject(ctx, "missing"); err == nil {
		t.Error("GetProject() should fail for an unknown id")
	}
}

func TestProjectSurvivesRestart(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	store := NewStore(base)
	meta, err := store.CreateProject(ctx, "Durable", core.NewProjectDocument())
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	if _, err := store.AppendMessages(ctx, meta.ID, []*core.Message{
		core.NewObjectDelete("alice", "a"),
		core.NewObjectDelete("alice", "b"),
	}); err != nil {
		t.Fatalf("AppendMessages() failed: %v", err)
	}

	// A new store over the same directory sees the project and resumes the
	// sequence where the old one stopped.
	reopened := NewStore(base)
	doc, err := reopened.GetProject(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetProject() after reopen failed: %v", err)
	}
	if doc == nil {
		t.Fatal("Reopened store returned nil document")
	}

	seq, err := reopened.AppendMessages(ctx, meta.ID, []*core.Message{core.NewSyncRequest("bob")})
	if err != nil {
		t.Fatalf("AppendMessages() after reopen failed: %v", err)
	}
	if seq != 3 {
		t.Errorf("Sequence did not resume: got %d, want 3", seq)
	}

	msgs, err := reopened.MessagesSince(ctx, meta.ID, 0)
	if err != nil {
		t.Fatalf("MessagesSince() failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("Message count mismatch after reopen: got %d, want 3", len(msgs))
	}
}

func TestMessagesSince_EmptyLog(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	meta, err := store.CreateProject(ctx, "Quiet", core.NewProjectDocument())
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}

	msgs, err := store.MessagesSince(ctx, meta.ID, 0)
	if err != nil {
		t.Fatalf("MessagesSince() failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Empty log returned %d messages", len(msgs))
	}
}
