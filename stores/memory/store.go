package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type project struct {
	meta    core.ProjectMeta
	doc     []byte // marshaled core.ProjectDocument
	msgs    []core.StoredMessage
	nextSeq int64
}

// memStore keeps projects and their message queues in process memory. It is
// the default backend and the one the handler tests run against.
type memStore struct {
	mu       sync.RWMutex
	projects map[string]*project
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{projects: make(map[string]*project)}
}

func (s *memStore) CreateProject(ctx context.Context, name string, doc *core.ProjectDocument) (*core.ProjectMeta, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal project document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	meta := core.ProjectMeta{
		ID:        ulid.Make().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.projects[meta.ID] = &project{meta: meta, doc: data}

	logrus.WithFields(logrus.Fields{
		"project_id":  meta.ID,
		"data_length": len(data),
	}).Info("Project created")
	metaCopy := meta
	return &metaCopy, nil
}

func (s *memStore) GetProject(ctx context.Context, id string) (*core.ProjectDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		logrus.WithField("project_id", id).Warn("Project not found")
		return nil, fmt.Errorf("project with id %s not found", id)
	}
	var doc core.ProjectDocument
	if err := json.Unmarshal(p.doc, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal project document: %w", err)
	}
	return &doc, nil
}

func (s *memStore) SaveProject(ctx context.Context, id string, doc *core.ProjectDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal project document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project with id %s not found", id)
	}
	p.doc = data
	p.meta.UpdatedAt = time.Now()
	logrus.WithFields(logrus.Fields{
		"project_id":  id,
		"data_length": len(data),
	}).Info("Project saved")
	return nil
}

func (s *memStore) AppendMessages(ctx context.Context, id string, msgs []*core.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return 0, fmt.Errorf("project with id %s not found", id)
	}
	for _, m := range msgs {
		p.nextSeq++
		p.msgs = append(p.msgs, core.StoredMessage{Seq: p.nextSeq, Message: m})
	}
	return p.nextSeq, nil
}

func (s *memStore) MessagesSince(ctx context.Context, id string, after int64) ([]core.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project with id %s not found", id)
	}
	out := make([]core.StoredMessage, 0)
	for _, m := range p.msgs {
		if m.Seq > after {
			out = append(out, m)
		}
	}
	return out, nil
}
