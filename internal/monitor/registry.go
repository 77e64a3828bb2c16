package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// SubscribeOutcome is the result of a subscribe call.
type SubscribeOutcome int

const (
	Subscribed SubscribeOutcome = iota
	AlreadySubscribed
)

func (o SubscribeOutcome) String() string {
	if o == AlreadySubscribed {
		return "already_subscribed"
	}
	return "subscribed"
}

// UnsubscribeOutcome is the result of an unsubscribe call.
type UnsubscribeOutcome int

const (
	Unsubscribed UnsubscribeOutcome = iota
	NotSubscribed
)

func (o UnsubscribeOutcome) String() string {
	if o == NotSubscribed {
		return "not_subscribed"
	}
	return "unsubscribed"
}

// Store persists the registry. Implementations live in the subscriptions module.
type Store interface {
	Load(ctx context.Context) (map[int64][]string, error)
	EnsureUser(ctx context.Context, userID int64) error
	Add(ctx context.Context, userID int64, address string) error
	Remove(ctx context.Context, userID int64, address string) error
}

// Registry maps users to monitored addresses and keeps the reverse index.
//
// Reads (the scheduler) take mu briefly. Writes from the command surface are
// serialised by writeMu, persisted first and only then applied in memory, so
// a failed store write leaves the registry unchanged.
type Registry struct {
	writeMu sync.Mutex

	mu        sync.RWMutex
	byUser    map[int64]map[string]struct{}
	byAddress map[string]map[int64]struct{}

	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		byUser:    make(map[int64]map[string]struct{}),
		byAddress: make(map[string]map[int64]struct{}),
		store:     store,
	}
}

// Load replaces the in-memory state with what the store holds.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	data, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	byUser := make(map[int64]map[string]struct{}, len(data))
	byAddress := make(map[string]map[int64]struct{})
	for userID, addrs := range data {
		byUser[userID] = make(map[string]struct{}, len(addrs))
		for _, a := range addrs {
			byUser[userID][a] = struct{}{}
			if byAddress[a] == nil {
				byAddress[a] = make(map[int64]struct{})
			}
			byAddress[a][userID] = struct{}{}
		}
	}

	r.mu.Lock()
	r.byUser, r.byAddress = byUser, byAddress
	r.mu.Unlock()
	return nil
}

// EnsureUser registers a user with no addresses. It reports whether the user is new.
func (r *Registry) EnsureUser(ctx context.Context, userID int64) (bool, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.hasUser(userID) {
		return false, nil
	}
	if r.store != nil {
		if err := r.store.EnsureUser(ctx, userID); err != nil {
			return false, fmt.Errorf("ensure user %d: %w", userID, err)
		}
	}

	r.mu.Lock()
	r.byUser[userID] = make(map[string]struct{})
	r.mu.Unlock()
	return true, nil
}

func (r *Registry) Subscribe(ctx context.Context, userID int64, address string) (SubscribeOutcome, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.isSubscribed(userID, address) {
		return AlreadySubscribed, nil
	}
	if r.store != nil {
		if err := r.store.Add(ctx, userID, address); err != nil {
			return Subscribed, fmt.Errorf("subscribe %d to %s: %w", userID, address, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][address] = struct{}{}
	if r.byAddress[address] == nil {
		r.byAddress[address] = make(map[int64]struct{})
	}
	r.byAddress[address][userID] = struct{}{}
	return Subscribed, nil
}

// Unsubscribe removes address from the user's set. The user itself stays registered.
func (r *Registry) Unsubscribe(ctx context.Context, userID int64, address string) (UnsubscribeOutcome, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if !r.isSubscribed(userID, address) {
		return NotSubscribed, nil
	}
	if r.store != nil {
		if err := r.store.Remove(ctx, userID, address); err != nil {
			return Unsubscribed, fmt.Errorf("unsubscribe %d from %s: %w", userID, address, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser[userID], address)
	if users := r.byAddress[address]; users != nil {
		delete(users, userID)
		if len(users) == 0 {
			delete(r.byAddress, address)
		}
	}
	return Unsubscribed, nil
}

// ListAddresses returns the user's addresses in lexical order.
func (r *Registry) ListAddresses(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := lo.Keys(r.byUser[userID])
	sort.Strings(out)
	return out
}

// AddressesWithSubscribers returns every address monitored by at least one user.
func (r *Registry) AddressesWithSubscribers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := lo.Keys(r.byAddress)
	sort.Strings(out)
	return out
}

// Subscribers returns the users monitoring address.
func (r *Registry) Subscribers(address string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := lo.Keys(r.byAddress[address])
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Users counts registered users, including those with no addresses.
func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *Registry) hasUser(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

func (r *Registry) isSubscribed(userID int64, address string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID][address]
	return ok
}
