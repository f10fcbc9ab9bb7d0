package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/sowilo/internal/catalog"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS wallpapers (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	width        INTEGER NOT NULL DEFAULT 0,
	height       INTEGER NOT NULL DEFAULT 0,
	format       TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL,
	tags         TEXT NOT NULL DEFAULT '[]',
	colors       TEXT NOT NULL DEFAULT '[]',
	preview_url  TEXT NOT NULL DEFAULT '',
	download_url TEXT NOT NULL DEFAULT '',
	views        INTEGER NOT NULL DEFAULT 0,
	downloads    INTEGER NOT NULL DEFAULT 0,
	favorites    INTEGER NOT NULL DEFAULT 0
);
`

// SQLite persists the catalog in a single wallpapers table.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the SQLite snapshot and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("snapshot: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Save rewrites the wallpapers table with ws inside one transaction.
func (s *SQLite) Save(ws []catalog.Wallpaper) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM wallpapers`); err != nil {
		return fmt.Errorf("snapshot: clear: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO wallpapers
			(id, name, width, height, format, created_at, tags, colors,
			 preview_url, download_url, views, downloads, favorites)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, w := range ws {
		tagsJSON, _ := json.Marshal(w.Tags)
		colorsJSON, _ := json.Marshal(w.Colors)
		_, err := stmt.Exec(w.ID, w.Name, w.Width, w.Height, w.Format,
			w.CreatedAt.UTC().Format(time.RFC3339Nano),
			string(tagsJSON), string(colorsJSON),
			w.PreviewURL, w.DownloadURL, w.Views, w.Downloads, w.Favorites)
		if err != nil {
			return fmt.Errorf("snapshot: insert %s: %w", w.ID, err)
		}
	}

	return tx.Commit()
}

// Load returns every persisted record.
func (s *SQLite) Load() ([]catalog.Wallpaper, error) {
	rows, err := s.conn.Query(`
		SELECT id, name, width, height, format, created_at, tags, colors,
		       preview_url, download_url, views, downloads, favorites
		FROM wallpapers
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load: %w", err)
	}
	defer rows.Close()

	var out []catalog.Wallpaper
	for rows.Next() {
		var w catalog.Wallpaper
		var createdAt, tagsJSON, colorsJSON string
		if err := rows.Scan(&w.ID, &w.Name, &w.Width, &w.Height, &w.Format,
			&createdAt, &tagsJSON, &colorsJSON,
			&w.PreviewURL, &w.DownloadURL, &w.Views, &w.Downloads, &w.Favorites); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			w.CreatedAt = t
		}
		_ = json.Unmarshal([]byte(tagsJSON), &w.Tags)
		_ = json.Unmarshal([]byte(colorsJSON), &w.Colors)
		out = append(out, w)
	}
	return out, rows.Err()
}
