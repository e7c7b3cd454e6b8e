package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"productmatcher/logging"
	"productmatcher/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens the catalog database and creates or migrates its schema
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := OpenDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		image_path TEXT NOT NULL,
		colors TEXT NOT NULL DEFAULT '[]',
		embedding BLOB,
		created_at TEXT,
		modified_at TEXT,
		UNIQUE(image_path)
	);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	// Older catalogs predate categories
	if err := ensureColumn(db, "products", "category", "TEXT NOT NULL DEFAULT ''"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating category index: %w", err)
	}

	return db, nil
}

// OpenDatabase opens an existing database connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("error opening database %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database %s: %w", dbPath, err)
	}
	return db, nil
}

func ensureColumn(db *sql.DB, table, column, definition string) error {
	var count int
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name = ?", table), column).Scan(&count)
	if err != nil {
		return fmt.Errorf("error checking for %s column: %w", column, err)
	}
	if count > 0 {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", table, column, definition)); err != nil {
		return fmt.Errorf("error adding %s column: %w", column, err)
	}
	logging.DebugLog("Added '%s' column to existing %s table", column, table)
	return nil
}

// CheckProductExists reports whether an image is already indexed and, if so, its stored modification time
func CheckProductExists(ctx context.Context, db *sql.DB, imagePath string) (bool, string, error) {
	var modifiedAt sql.NullString
	err := db.QueryRowContext(ctx, "SELECT modified_at FROM products WHERE image_path = ?", imagePath).Scan(&modifiedAt)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("database error for %s: %w", imagePath, err)
	}
	return true, modifiedAt.String, nil
}

// StoreProduct inserts a product. With forceRewrite an existing row for the
// same image is replaced; otherwise it is left untouched.
func StoreProduct(ctx context.Context, db *sql.DB, p types.Product, forceRewrite bool) error {
	now := time.Now().Format(time.RFC3339)

	colors, err := json.Marshal(nonNilColors(p.Colors))
	if err != nil {
		return fmt.Errorf("cannot encode colors for %s: %w", p.ImagePath, err)
	}

	verb := "INSERT OR IGNORE"
	if forceRewrite {
		verb = "INSERT OR REPLACE"
	}

	stmt, err := db.PrepareContext(ctx, verb+` INTO products (
		name, category, image_path, colors, embedding, created_at, modified_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %w", p.ImagePath, err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		p.Name,
		p.Category,
		p.ImagePath,
		string(colors),
		EncodeEmbedding(p.Embedding),
		now,
		p.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", p.ImagePath, err)
	}

	return nil
}

// GetProduct loads a single product by id
func GetProduct(ctx context.Context, db *sql.DB, id int64) (*types.Product, error) {
	row := db.QueryRowContext(ctx, `SELECT id, name, category, image_path, colors, embedding, created_at, modified_at
		FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*types.Product, error) {
	var (
		p          types.Product
		colors     string
		blob       []byte
		createdAt  sql.NullString
		modifiedAt sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.ImagePath, &colors, &blob, &createdAt, &modifiedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(colors), &p.Colors); err != nil {
		return nil, fmt.Errorf("bad colors for product %d: %w", p.ID, err)
	}
	embedding, err := DecodeEmbedding(blob)
	if err != nil {
		return nil, fmt.Errorf("bad embedding for product %d: %w", p.ID, err)
	}
	p.Embedding = embedding
	p.CreatedAt = createdAt.String
	p.ModifiedAt = modifiedAt.String
	return &p, nil
}

// CatalogStats contains statistics about the catalog
type CatalogStats struct {
	TotalProducts  int
	WithEmbeddings int
	Categories     int
}

// GetCatalogStats retrieves statistics about indexed products
func GetCatalogStats(ctx context.Context, db *sql.DB) (*CatalogStats, error) {
	var stats CatalogStats
	err := db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(embedding),
		COUNT(DISTINCT NULLIF(category, ''))
		FROM products`).Scan(&stats.TotalProducts, &stats.WithEmbeddings, &stats.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog stats: %w", err)
	}
	return &stats, nil
}

func nonNilColors(c types.ColorProfile) types.ColorProfile {
	if c == nil {
		return types.ColorProfile{}
	}
	return c
}
