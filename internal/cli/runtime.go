package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/roach88/withdef/internal/backend"
	"github.com/roach88/withdef/internal/defdb"
	"github.com/roach88/withdef/internal/defstore"
	"github.com/roach88/withdef/internal/dispatch"
)

// fetchStack is the in-process fetch layer shared by resolve and serve:
// the SQLite index, the definition store, and a dispatcher delivering
// requests to the index backend.
type fetchStack struct {
	db         *defdb.DB
	store      *defstore.Store
	dispatcher *dispatch.Dispatcher

	wg sync.WaitGroup
}

// openExistingDB opens the index at path, failing if the file is missing
// instead of creating an empty database.
func openExistingDB(path string) (*defdb.DB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	db, err := defdb.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return db, nil
}

// openFetchStack opens the index at path. With create unset a missing
// database is a command error.
func openFetchStack(path string, create bool) (*fetchStack, error) {
	var db *defdb.DB
	var err error
	if create {
		db, err = defdb.Open(path)
		if err != nil {
			err = WrapExitError(ExitCommandError, "failed to open database", err)
		}
	} else {
		db, err = openExistingDB(path)
	}
	if err != nil {
		return nil, err
	}

	store := defstore.New()
	d := dispatch.New(dispatch.UUIDv7Generator{})
	d.Register(backend.NewDefBackend(db, store))

	return &fetchStack{db: db, store: store, dispatcher: d}, nil
}

// start runs the dispatcher until ctx is cancelled or close is called.
func (s *fetchStack) start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.dispatcher.Run(ctx); err != nil && err != context.Canceled {
			slog.Warn("dispatcher stopped", "error", err)
		}
	}()
}

// close stops the dispatcher, waits for in-flight requests, and closes
// the index.
func (s *fetchStack) close() {
	s.dispatcher.Stop()
	s.wg.Wait()
	if err := s.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
