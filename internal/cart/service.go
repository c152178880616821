package cart

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cespare/xxhash/v2"

	"github.com/angelmondragon/bakery-cart/internal/storage"
	pkgerrors "github.com/angelmondragon/bakery-cart/pkg/errors"
)

var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// sessionShards bounds the lock state kept for sessions. Sessions hashing to
// the same shard serialize against each other.
const sessionShards = 256

// Service hands out Store handles per cart session and re-broadcasts every
// store's events on a service-wide notifier tagged with the session id.
// Nothing is retained per session.
type Service struct {
	backend storage.Backend
	opts    Options

	shards [sessionShards]sequencer
	events *notifier[SessionEvent]
}

// NewService builds a session registry over backend. opts.StorageKey and
// opts.CountKey are the prefixes each session key is derived from.
func NewService(backend storage.Backend, opts Options) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("storage backend required")
	}
	if opts.StorageKey == "" {
		opts.StorageKey = DefaultStorageKey
	}
	if opts.CountKey == "" {
		opts.CountKey = DefaultCountKey
	}
	return &Service{
		backend: backend,
		opts:    opts,
		events:  newNotifier[SessionEvent](),
	}, nil
}

// ValidSessionID reports whether id can be used as a cart session.
func ValidSessionID(id string) bool {
	return sessionIDRe.MatchString(id)
}

// SessionKeys returns the primary and legacy count keys for a session.
func (s *Service) SessionKeys(sessionID string) (string, string) {
	return s.opts.StorageKey + ":" + sessionID, s.opts.CountKey + ":" + sessionID
}

// Store returns a handle on sessionID's cart. Handles are cheap and may be
// dropped after use; every handle for a session shares one sequencer, so
// concurrent handles still serialize and number their commits in order.
func (s *Service) Store(sessionID string) (*Store, error) {
	if !ValidSessionID(sessionID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart session id").
			WithDetails(map[string]string{"session": "must be 1-128 characters of letters, digits, '.', '_' or '-'"})
	}

	opts := s.opts
	opts.StorageKey, opts.CountKey = s.SessionKeys(sessionID)
	return newStore(s.backend, opts, s.sequencerFor(sessionID), func(evt Event) {
		s.events.emit(evt.Type, SessionEvent{SessionID: sessionID, Event: evt})
	})
}

func (s *Service) sequencerFor(sessionID string) *sequencer {
	return &s.shards[xxhash.Sum64String(sessionID)%sessionShards]
}

// Subscribe listens to eventType across every session.
func (s *Service) Subscribe(eventType EventType, listener func(SessionEvent)) func() {
	return s.events.subscribe(eventType, listener)
}

// Ping checks the storage backend.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart storage unavailable")
	}
	return nil
}

// Close releases the storage backend.
func (s *Service) Close() error {
	return s.backend.Close()
}
