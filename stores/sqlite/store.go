package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	projectStmt := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT,
		data BLOB,
		created_at DATETIME,
		updated_at DATETIME
	);`
	if _, err = db.Exec(projectStmt); err != nil {
		log.Fatalf("failed to create projects table: %v", err)
	}

	messageStmt := `
	CREATE TABLE IF NOT EXISTS messages (
		project_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		data BLOB,
		PRIMARY KEY (project_id, seq)
	);`
	if _, err = db.Exec(messageStmt); err != nil {
		log.Fatalf("failed to create messages table: %v", err)
	}

	return &sqliteStore{db}
}

func (s *sqliteStore) CreateProject(ctx context.Context, name string, doc *core.ProjectDocument) (*core.ProjectMeta, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal project document: %w", err)
	}

	now := time.Now()
	meta := &core.ProjectMeta{
		ID:        ulid.Make().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	log := logrus.WithFields(logrus.Fields{
		"project_id":  meta.ID,
		"data_length": len(data),
	})

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		meta.ID, name, data, now, now)
	if err != nil {
		log.WithError(err).Error("Failed to create project")
		return nil, err
	}
	log.Info("Project created")
	return meta, nil
}

func (s *sqliteStore) GetProject(ctx context.Context, id string) (*core.ProjectDocument, error) {
	log := logrus.WithField("project_id", id)
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM projects WHERE id = ?", id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn("Project not found")
			return nil, fmt.Errorf("project with id %s not found", id)
		}
		log.WithError(err).Error("Failed to retrieve project")
		return nil, err
	}
	var doc core.ProjectDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal project document: %w", err)
	}
	return &doc, nil
}

func (s *sqliteStore) SaveProject(ctx context.Context, id string, doc *core.ProjectDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal project document: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET data = ?, updated_at = ? WHERE id = ?", data, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("project with id %s not found", id)
	}
	return nil
}

func (s *sqliteStore) AppendMessages(ctx context.Context, id string, msgs []*core.Message) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", id).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("project with id %s not found", id)
		}
		return 0, err
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM messages WHERE project_id = ?", id).Scan(&seq); err != nil {
		return 0, err
	}

	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return 0, fmt.Errorf("marshal message: %w", err)
		}
		seq++
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO messages (project_id, seq, data) VALUES (?, ?, ?)", id, seq, data); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *sqliteStore) MessagesSince(ctx context.Context, id string, after int64) ([]core.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, data FROM messages WHERE project_id = ? AND seq > ? ORDER BY seq", id, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.StoredMessage, 0)
	for rows.Next() {
		var seq int64
		var data []byte
		if err := rows.Scan(&seq, &data); err != nil {
			return nil, err
		}
		var msg core.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logrus.WithError(err).WithField("seq", seq).Warn("Skipping undecodable stored message")
			continue
		}
		out = append(out, core.StoredMessage{Seq: seq, Message: &msg})
	}
	return out, rows.Err()
}
