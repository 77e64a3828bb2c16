package subscriptions

import (
	"context"
	"fmt"

	"hyper_monitor/internal/modules/subscriptions/service/pg/subscriptions/sql"

	"github.com/jackc/pgx/v5"
)

// Subscriptions implement db store
type Subscriptions struct {
	sql *sql.Queries
}

// New instance
func New() *Subscriptions {
	return &Subscriptions{
		sql: sql.New(),
	}
}

func (s *Subscriptions) InsertUser(ctx context.Context, tx pgx.Tx, userID int64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Subscriptions.InsertUser: %w", err)
		}
	}()
	return s.sql.InsertUser(ctx, tx, userID)
}

// Insert registers the user if needed and adds the address.
func (s *Subscriptions) Insert(ctx context.Context, tx pgx.Tx, userID int64, address string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Subscriptions.Insert: %w", err)
		}
	}()
	if err = s.sql.InsertUser(ctx, tx, userID); err != nil {
		return err
	}
	return s.sql.InsertSubscription(ctx, tx, &sql.InsertSubscriptionParams{
		UserID:  userID,
		Address: address,
	})
}

func (s *Subscriptions) Delete(ctx context.Context, tx pgx.Tx, userID int64, address string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Subscriptions.Delete: %w", err)
		}
	}()
	return s.sql.DeleteSubscription(ctx, tx, &sql.DeleteSubscriptionParams{
		UserID:  userID,
		Address: address,
	})
}

// GetAll returns every known user with its addresses. Users without
// subscriptions map to an empty slice.
func (s *Subscriptions) GetAll(ctx context.Context, tx pgx.Tx) (users map[int64][]string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Subscriptions.GetAll: %w", err)
		}
	}()
	ids, err := s.sql.ListUsers(ctx, tx)
	if err != nil {
		return nil, err
	}
	rows, err := s.sql.ListSubscriptions(ctx, tx)
	if err != nil {
		return nil, err
	}

	users = make(map[int64][]string, len(ids))
	for _, id := range ids {
		users[id] = []string{}
	}
	for _, r := range rows {
		users[r.UserID] = append(users[r.UserID], r.Address)
	}
	return users, nil
}
