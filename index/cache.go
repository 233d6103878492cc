package index

import (
	"fmt"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS articles (
	id          INTEGER PRIMARY KEY,
	title       TEXT NOT NULL,
	url         TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	image_url   TEXT NOT NULL DEFAULT '',
	image_alt   TEXT NOT NULL DEFAULT '',
	published   TEXT NOT NULL DEFAULT ''
);
`

// Cache is the sqlite-backed article store. A single connection guarded by a
// mutex is enough: staging is a sequential CLI workload.
type Cache struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

// OpenCache opens (creating if necessary) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("unable to open article cache: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, cacheSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to initialize article cache: %w", err)
	}
	return &Cache{conn: conn}, nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Load returns all cached articles and the time of the last refresh. A zero
// time means the cache has never been filled.
func (c *Cache) Load() ([]Article, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fetchedAt time.Time
	err := sqlitex.Execute(c.conn, `SELECT value FROM meta WHERE key='fetched_at'`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			t, err := time.Parse(time.RFC3339, stmt.ColumnText(0))
			if err != nil {
				return fmt.Errorf("bad fetched_at value in cache: %w", err)
			}
			fetchedAt = t
			return nil
		}})
	if err != nil {
		return nil, time.Time{}, err
	}

	var articles []Article
	err = sqlitex.Execute(c.conn,
		`SELECT id, title, url, description, image_url, image_alt, published FROM articles ORDER BY published DESC, id DESC`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			articles = append(articles, Article{
				ID:          stmt.ColumnInt64(0),
				Title:       stmt.ColumnText(1),
				URL:         stmt.ColumnText(2),
				Description: stmt.ColumnText(3),
				ImageURL:    stmt.ColumnText(4),
				ImageAlt:    stmt.ColumnText(5),
				Published:   stmt.ColumnText(6),
			})
			return nil
		}})
	if err != nil {
		return nil, time.Time{}, err
	}
	return articles, fetchedAt, nil
}

// Replace swaps the cache content for the given article set in a single
// transaction and stamps the refresh time.
func (c *Cache) Replace(articles []Article, fetchedAt time.Time) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	release := sqlitex.Save(c.conn)
	defer release(&err)

	if err = sqlitex.Execute(c.conn, `DELETE FROM articles`, nil); err != nil {
		return err
	}
	for _, a := range articles {
		err = sqlitex.Execute(c.conn,
			`INSERT INTO articles (id, title, url, description, image_url, image_alt, published) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{a.ID, a.Title, a.URL, a.Description, a.ImageURL, a.ImageAlt, a.Published}})
		if err != nil {
			return err
		}
	}
	err = sqlitex.Execute(c.conn,
		`INSERT INTO meta (key, value) VALUES ('fetched_at', ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		&sqlitex.ExecOptions{Args: []any{fetchedAt.UTC().Format(time.RFC3339)}})
	return err
}

// Count returns the number of cached articles.
func (c *Cache) Count() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	err := sqlitex.Execute(c.conn, `SELECT COUNT(*) FROM articles`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			n = int(stmt.ColumnInt64(0))
			return nil
		}})
	return n, err
}
