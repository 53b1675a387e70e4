package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type s3Project struct {
	Meta     core.ProjectMeta      `json:"meta"`
	Document *core.ProjectDocument `json:"document"`
}

type messageQueue struct {
	msgs    []core.StoredMessage
	nextSeq int64
}

// s3Store persists project documents in an S3 bucket. The relay message
// queues stay in process memory: they are ephemeral by design (the catch-up
// protocol heals anything a restart loses) and S3 is a poor fit for
// per-message appends.
type s3Store struct {
	s3Client *s3.Client
	bucket   string

	mu     sync.Mutex
	queues map[string]*messageQueue
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
		queues:   make(map[string]*messageQueue),
	}
}

func projectKey(id string) string {
	return "projects/" + id + ".json"
}

func (s *s3Store) CreateProject(ctx context.Context, name string, doc *core.ProjectDocument) (*core.ProjectMeta, error) {
	now := time.Now()
	meta := core.ProjectMeta{
		ID:        ulid.Make().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.putProject(ctx, &s3Project{Meta: meta, Document: doc}); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"project_id": meta.ID,
		"bucket":     s.bucket,
	}).Info("Project created")
	metaCopy := meta
	return &metaCopy, nil
}

func (s *s3Store) GetProject(ctx context.Context, id string) (*core.ProjectDocument, error) {
	p, err := s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Document, nil
}

func (s *s3Store) SaveProject(ctx context.Context, id string, doc *core.ProjectDocument) error {
	p, err := s.getProject(ctx, id)
	if err != nil {
		return err
	}
	p.Document = doc
	p.Meta.UpdatedAt = time.Now()
	return s.putProject(ctx, p)
}

func (s *s3Store) AppendMessages(ctx context.Context, id string, msgs []*core.Message) (int64, error) {
	if _, err := s.getProject(ctx, id); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[id]
	if !ok {
		q = &messageQueue{}
		s.queues[id] = q
	}
	for _, m := range msgs {
		q.nextSeq++
		q.msgs = append(q.msgs, core.StoredMessage{Seq: q.nextSeq, Message: m})
	}
	return q.nextSeq, nil
}

func (s *s3Store) MessagesSince(ctx context.Context, id string, after int64) ([]core.StoredMessage, error) {
	if _, err := s.getProject(ctx, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.StoredMessage, 0)
	q, ok := s.queues[id]
	if !ok {
		return out, nil
	}
	for _, m := range q.msgs {
		if m.Seq > after {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *s3Store) getProject(ctx context.Context, id string) (*s3Project, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(projectKey(id)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("project with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read project data: %w", err)
	}
	var p s3Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal project object: %w", err)
	}
	return &p, nil
}

func (s *s3Store) putProject(ctx context.Context, p *s3Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project object: %w", err)
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(projectKey(p.Meta.ID)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload project: %w", err)
	}
	return nil
}
