// Package documents stores reference files uploaded against a persona.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/EasterCompany/pulse-service/interfaces"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound    = errors.New("documents: not found")
	ErrInvalidName = errors.New("documents: invalid file name")
	ErrTooLarge    = errors.New("documents: file too large")
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	persona_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	content    BLOB NOT NULL,
	size       INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (persona_id, name)
);
CREATE INDEX IF NOT EXISTS documents_recent ON documents (persona_id, updated_at DESC);
`

// SQLiteStore keeps documents in a single SQLite file.
type SQLiteStore struct {
	db       *sql.DB
	maxBytes int64
	now      func() time.Time
}

// Open creates the database file and its directory if needed. maxBytes caps
// a single upload; zero means no limit.
func Open(path string, maxBytes int64) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("could not create documents directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open documents database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not initialise documents schema: %w", err)
	}
	return &SQLiteStore{db: db, maxBytes: maxBytes, now: time.Now}, nil
}

// CleanName reduces an uploaded file name to its base name and rejects
// names that would be hidden or empty.
func CleanName(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return name, nil
}

// Upload stores content under name, replacing any earlier file of that name.
func (s *SQLiteStore) Upload(ctx context.Context, personaID, name string, content []byte) error {
	clean, err := CleanName(name)
	if err != nil {
		return err
	}
	if personaID == "" {
		return errors.New("documents: persona id is required")
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return ErrTooLarge
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (persona_id, name, content, size, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (persona_id, name) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			updated_at = excluded.updated_at`,
		personaID, clean, content, len(content), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("could not save document %s: %w", clean, err)
	}
	return nil
}

// List returns a persona's documents, newest first. A persona with no
// documents yields an empty list.
func (s *SQLiteStore) List(ctx context.Context, personaID string) ([]interfaces.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, size, updated_at FROM documents
		WHERE persona_id = ? AND name NOT LIKE '.%'
		ORDER BY updated_at DESC, name ASC`, personaID)
	if err != nil {
		return nil, fmt.Errorf("could not list documents: %w", err)
	}
	defer rows.Close()

	docs := []interfaces.Document{}
	for rows.Next() {
		var d interfaces.Document
		var updated int64
		if err := rows.Scan(&d.Name, &d.Size, &updated); err != nil {
			return nil, fmt.Errorf("could not read document row: %w", err)
		}
		d.UpdatedAt = time.Unix(0, updated).UTC()
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Read(ctx context.Context, personaID, name string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM documents WHERE persona_id = ? AND name = ?`, personaID, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read document %s: %w", name, err)
	}
	return content, nil
}

// ReadText concatenates the named documents as prompt context, each under a
// header line, stopping at budget bytes. Files that are not valid UTF-8 text
// are skipped.
func (s *SQLiteStore) ReadText(ctx context.Context, personaID string, names []string, budget int) (string, error) {
	var b strings.Builder
	for _, name := range names {
		content, err := s.Read(ctx, personaID, name)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(content) {
			continue
		}
		section := fmt.Sprintf("--- %s ---\n%s\n", name, content)
		if budget > 0 && b.Len()+len(section) > budget {
			remaining := budget - b.Len()
			if remaining > 0 {
				b.WriteString(truncateUTF8(section, remaining))
			}
			break
		}
		b.WriteString(section)
	}
	return b.String(), nil
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
