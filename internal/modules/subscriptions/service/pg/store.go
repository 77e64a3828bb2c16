package pg

import (
	"context"
	"fmt"
	"io/fs"
	"slices"

	"hyper_monitor/internal/modules/subscriptions/service/pg/subscriptions"
	"hyper_monitor/migrations"
	"hyper_monitor/pkg/db"
	"hyper_monitor/pkg/logger"

	"github.com/jackc/pgx/v5"
)

// Store persists subscriptions in postgres.
type Store struct {
	db   db.TxManager
	subs *subscriptions.Subscriptions
}

func NewStore(tm db.TxManager) *Store {
	return &Store{
		db:   tm,
		subs: subscriptions.New(),
	}
}

// Migrate applies the embedded schema files in name order. They are
// idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	slices.Sort(names)
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		for _, name := range names {
			body, err := migrations.FS.ReadFile(name)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctxTx, string(body)); err != nil {
				return fmt.Errorf("migration %s: %w", name, err)
			}
			logger.Debug("[PG] applied %s", name)
		}
		return nil
	})
}

// Load migrates first, so it must run before any write.
func (s *Store) Load(ctx context.Context) (users map[int64][]string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Load: %w", err)
		}
	}()
	if err = s.Migrate(ctx); err != nil {
		return nil, err
	}
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		users, err = s.subs.GetAll(ctxTx, tx)
		return err
	})
	return users, err
}

func (s *Store) EnsureUser(ctx context.Context, userID int64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.EnsureUser: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return s.subs.InsertUser(ctxTx, tx, userID)
	})
}

func (s *Store) Add(ctx context.Context, userID int64, address string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Add: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return s.subs.Insert(ctxTx, tx, userID, address)
	})
}

func (s *Store) Remove(ctx context.Context, userID int64, address string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Remove: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return s.subs.Delete(ctxTx, tx, userID, address)
	})
}
