package filesystem

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type fsProject struct {
	Meta     core.ProjectMeta      `json:"meta"`
	Document *core.ProjectDocument `json:"document"`
}

// fsStore persists projects as JSON files and message queues as append-only
// JSON-line logs under basePath. Suited to single-instance deployments.
type fsStore struct {
	basePath string

	mu      sync.Mutex
	nextSeq map[string]int64 // lazily primed from the log files
}

// NewStore creates a new filesystem-based store rooted at basePath.
func NewStore(basePath string) *fsStore {
	for _, dir := range []string{
		filepath.Join(basePath, "projects"),
		filepath.Join(basePath, "messages"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.WithError(err).WithField("dir", dir).Fatal("Failed to create storage directory")
		}
	}
	return &fsStore{basePath: basePath, nextSeq: make(map[string]int64)}
}

func (s *fsStore) projectPath(id string) string {
	return filepath.Join(s.basePath, "projects", id+".json")
}

func (s *fsStore) messagesPath(id string) string {
	return filepath.Join(s.basePath, "messages", id+".jsonl")
}

func (s *fsStore) CreateProject(ctx context.Context, name string, doc *core.ProjectDocument) (*core.ProjectMeta, error) {
	now := time.Now()
	meta := core.ProjectMeta{
		ID:        ulid.Make().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writeProject(&fsProject{Meta: meta, Document: doc}); err != nil {
		return nil, err
	}
	logrus.WithField("project_id", meta.ID).Info("Project created")
	metaCopy := meta
	return &metaCopy, nil
}

func (s *fsStore) GetProject(ctx context.Context, id string) (*core.ProjectDocument, error) {
	p, err := s.readProject(id)
	if err != nil {
		return nil, err
	}
	return p.Document, nil
}

func (s *fsStore) SaveProject(ctx context.Context, id string, doc *core.ProjectDocument) error {
	p, err := s.readProject(id)
	if err != nil {
		return err
	}
	p.Document = doc
	p.Meta.UpdatedAt = time.Now()
	return s.writeProject(p)
}

func (s *fsStore) AppendMessages(ctx context.Context, id string, msgs []*core.Message) (int64, error) {
	if _, err := s.readProject(id); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.seqLocked(id)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(s.messagesPath(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, m := range msgs {
		seq++
		line, err := json.Marshal(core.StoredMessage{Seq: seq, Message: m})
		if err != nil {
			return 0, fmt.Errorf("marshal message: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return 0, err
		}
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	s.nextSeq[id] = seq
	return seq, nil
}

func (s *fsStore) MessagesSince(ctx context.Context, id string, after int64) ([]core.StoredMessage, error) {
	if _, err := s.readProject(id); err != nil {
		return nil, err
	}

	f, err := os.Open(s.messagesPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return []core.StoredMessage{}, nil
		}
		return nil, err
	}
	defer f.Close()

	out := make([]core.StoredMessage, 0)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var stored core.StoredMessage
		if err := json.Unmarshal(scanner.Bytes(), &stored); err != nil {
			logrus.WithError(err).Warn("Skipping undecodable message log line")
			continue
		}
		if stored.Seq > after {
			out = append(out, stored)
		}
	}
	return out, scanner.Err()
}

// seqLocked returns the last assigned sequence, priming the cache from the
// log file on first use after a restart.
func (s *fsStore) seqLocked(id string) (int64, error) {
	if seq, ok := s.nextSeq[id]; ok {
		return seq, nil
	}
	f, err := os.Open(s.messagesPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			s.nextSeq[id] = 0
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var last int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var stored core.StoredMessage
		if err := json.Unmarshal(scanner.Bytes(), &stored); err == nil && stored.Seq > last {
			last = stored.Seq
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	s.nextSeq[id] = last
	return last, nil
}

func (s *fsStore) readProject(id string) (*fsProject, error) {
	data, err := os.ReadFile(s.projectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("project with id %s not found", id)
		}
		return nil, err
	}
	var p fsProject
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal project file: %w", err)
	}
	return &p, nil
}

func (s *fsStore) writeProject(p *fsProject) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project file: %w", err)
	}
	return os.WriteFile(s.projectPath(p.Meta.ID), data, 0o644)
}
