// Package session persists the (token, actor) pair of one browser context.
//
// A Store is bound to a single scope (the tab context) and writes two values
// under well-known keys. Load never fails: anything that cannot be turned
// back into a usable pair is reported as "no session".
package session

import (
	"context"
	"errors"
	"fmt"

	"holding-admin/internal/rbac"

	"github.com/rs/zerolog"
)

// Well-known keys of the persisted layout
const (
	KeyToken = "token"
	KeyActor = "user"

	scopeSeparator = ":"
)

var (
	// ErrKeyNotFound is returned by KV implementations for absent keys.
	ErrKeyNotFound = errors.New("session: key not found")

	errTokenEmpty = errors.New("session: token is empty")
	errActorNil   = errors.New("session: actor is nil")
)

// KV is the host storage primitive a Store is built on.
type KV interface {
	// Get returns ErrKeyNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete ignores keys that do not exist.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// ActorValidator rejects decoded profiles that cannot act as an Actor.
type ActorValidator interface {
	ValidateActor(actor *rbac.Actor) error
}

// Session is a persisted token and the actor it belongs to.
type Session struct {
	Token string
	Actor *rbac.Actor
}

// Store reads and writes one scope's session.
type Store struct {
	kv        KV
	scope     string
	validator ActorValidator
	logger    zerolog.Logger
	onCorrupt func()
}

type Option func(*Store)

// WithValidator sets the validator applied to decoded actors.
func WithValidator(v ActorValidator) Option {
	return func(s *Store) { s.validator = v }
}

// WithLogger sets the logger used for corrupt-session diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithCorruptHook registers a callback fired whenever a stored session is discarded as corrupt.
func WithCorruptHook(fn func()) Option {
	return func(s *Store) { s.onCorrupt = fn }
}

// NewStore binds kv to scope. An empty scope uses the bare keys.
func NewStore(kv KV, scope string, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		scope:     scope,
		validator: roleRequired{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scope returns the tab context this store is bound to.
func (s *Store) Scope() string {
	return s.scope
}

// Save overwrites any existing session in the scope.
func (s *Store) Save(ctx context.Context, token string, actor *rbac.Actor) error {
	if token == "" {
		return errTokenEmpty
	}
	if actor == nil {
		return errActorNil
	}

	data, err := encodeActor(actor)
	if err != nil {
		return fmt.Errorf("session: encode actor: %w", err)
	}

	if err := s.kv.Set(ctx, s.key(KeyToken), []byte(token)); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	if err := s.kv.Set(ctx, s.key(KeyActor), data); err != nil {
		// Leave no half-written pair behind.
		if delErr := s.kv.Delete(ctx, s.key(KeyToken)); delErr != nil {
			s.logger.Warn().Err(delErr).Str("scope", s.scope).Msg("session: rollback of token failed")
		}
		return fmt.Errorf("session: save actor: %w", err)
	}

	return nil
}

// Load returns the stored session, or false if either half is missing or unusable.
func (s *Store) Load(ctx context.Context) (*Session, bool) {
	token, ok := s.read(ctx, KeyToken)
	if !ok {
		return nil, false
	}
	raw, ok := s.read(ctx, KeyActor)
	if !ok {
		return nil, false
	}

	if len(token) == 0 {
		s.corrupt(errTokenEmpty)
		return nil, false
	}

	actor, err := decodeActor(raw)
	if err == nil {
		err = s.validator.ValidateActor(actor)
	}
	if err != nil {
		s.corrupt(err)
		return nil, false
	}

	return &Session{Token: string(token), Actor: actor}, true
}

// Clear removes both halves of the session.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key(KeyToken), s.key(KeyActor)); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, name string) ([]byte, bool) {
	value, err := s.kv.Get(ctx, s.key(name))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("scope", s.scope).Str("key", name).Msg("session: read failed, treating as anonymous")
		}
		return nil, false
	}
	return value, true
}

func (s *Store) corrupt(err error) {
	s.logger.Warn().Err(err).Str("scope", s.scope).Msg("session: discarding corrupt persisted session")
	if s.onCorrupt != nil {
		s.onCorrupt()
	}
}

func (s *Store) key(name string) string {
	if s.scope == "" {
		return name
	}
	return s.scope + scopeSeparator + name
}

type roleRequired struct{}

func (roleRequired) ValidateActor(actor *rbac.Actor) error {
	if actor == nil || actor.Role == "" {
		return rbac.ErrInvalidActor
	}
	return nil
}
