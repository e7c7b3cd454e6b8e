package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"productmatcher/catalog"
	"productmatcher/config"
	"productmatcher/database"
	"productmatcher/engine"
	"productmatcher/logging"
)

// newEngine builds the embedding engine over the configured ONNX model
func newEngine(c *config.Config) *engine.Engine {
	return engine.New(engine.ONNXLoader(c.Model.Path), engine.Options{
		Dim:           c.Model.Dim,
		MaxConcurrent: c.Model.MaxConcurrent,
		StartupDelay:  c.Model.StartupDelay.Duration,
	})
}

// startEngineAndWait loads the model synchronously, for batch commands
func startEngineAndWait(ctx context.Context, c *config.Config) (*engine.Engine, error) {
	e := newEngine(c)
	e.Start(ctx)
	fmt.Printf("Loading embedding model from %s...\n", c.Model.Path)
	if err := e.Wait(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// openCatalogDB opens the sqlite catalog, creating it when create is set
func openCatalogDB(path string, create bool) (*sql.DB, error) {
	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog database does not exist: %s. Run the index command first", path)
		}
		return database.OpenDatabase(path)
	}

	var (
		db  *sql.DB
		err error
	)
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(path)
		if err == nil {
			return db, nil
		}
		if i < maxRetries-1 {
			logging.LogWarning("Error initializing database (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}
	return nil, fmt.Errorf("error initializing database after %d attempts: %w", maxRetries, err)
}

// newMatcher builds the configured catalog backend. The returned cleanup
// releases any resources it holds.
func newMatcher(c *config.Config) (catalog.Matcher, func(), error) {
	switch c.Catalog.Backend {
	case config.BackendSupabase:
		m, err := catalog.NewSupabaseMatcher(catalog.SupabaseConfig{
			URL:      c.Catalog.SupabaseURL,
			APIKey:   c.Catalog.SupabaseKey,
			Function: c.Catalog.MatchFunction,
			Timeout:  c.Server.RequestTimeout.Duration,
		})
		if err != nil {
			return nil, nil, err
		}
		logging.LogInfo("Using Supabase catalog (%s)", c.Catalog.MatchFunction)
		return m, func() {}, nil
	case config.BackendSQLite:
		db, err := openCatalogDB(c.Catalog.DatabasePath, true)
		if err != nil {
			return nil, nil, err
		}
		logging.LogInfo("Using local catalog %s", c.Catalog.DatabasePath)
		return catalog.NewLocalMatcher(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog backend %q", c.Catalog.Backend)
	}
}
