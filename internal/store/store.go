// Package store provides SQLite persistence for acquired posts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/abelbrown/pulse/internal/model"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		subreddit TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		selftext TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		created_utc REAL,
		score INTEGER NOT NULL DEFAULT 0,
		num_comments INTEGER NOT NULL DEFAULT 0,
		permalink TEXT NOT NULL DEFAULT '',
		fetched_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_utc);
	CREATE INDEX IF NOT EXISTS idx_posts_subreddit ON posts(subreddit);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SavePosts stores posts, returning the ones that were newly inserted.
// Posts whose id is already stored are skipped via INSERT OR IGNORE.
// Thread-safe: acquires write lock.
func (s *Store) SavePosts(ctx context.Context, posts []model.Post) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(posts) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO posts (
			id, subreddit, author, title, selftext, url, created_utc,
			score, num_comments, permalink, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var inserted []model.Post
	for _, p := range posts {
		var created any
		if p.CreatedUTC != nil {
			created = *p.CreatedUTC
		}
		result, err := stmt.ExecContext(ctx,
			p.ID,
			p.Subreddit,
			p.Author,
			p.Title,
			p.SelfText,
			p.URL,
			created,
			p.Score,
			p.NumComments,
			p.Permalink,
			now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert post %s: %w", p.ID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected > 0 {
			inserted = append(inserted, p)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// AllPosts returns every stored post in insertion order.
// Thread-safe: acquires read lock.
func (s *Store) AllPosts(ctx context.Context) ([]model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subreddit, author, title, selftext, url, created_utc,
			score, num_comments, permalink
		FROM posts
		ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		var created sql.NullFloat64
		err := rows.Scan(
			&p.ID,
			&p.Subreddit,
			&p.Author,
			&p.Title,
			&p.SelfText,
			&p.URL,
			&created,
			&p.Score,
			&p.NumComments,
			&p.Permalink,
		)
		if err != nil {
			return nil, err
		}
		if created.Valid {
			p.CreatedUTC = model.Float64(created.Float64)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// HasPost reports whether a post with the given id is stored.
// Thread-safe: acquires read lock.
func (s *Store) HasPost(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountPosts returns the number of stored posts.
// Thread-safe: acquires read lock.
func (s *Store) CountPosts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
