package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

// AgentStateStore holds the agent state documents shared with the
// conversational layer. Writes are field-scoped: Patch only touches the
// top-level fields it names.
type AgentStateStore interface {
	// Create stores a new document. Returns apperrors.ErrConflict if id exists.
	Create(ctx context.Context, id string, initial models.DashboardState) error

	// Get returns the document. Returns apperrors.ErrNotFound if id is unknown.
	Get(ctx context.Context, id string) (*models.DashboardState, error)

	// Patch merges the named fields into the document.
	// Returns apperrors.ErrNotFound if id is unknown.
	Patch(ctx context.Context, id string, patch models.StatePatch) error

	// Delete removes the document. Returns apperrors.ErrNotFound if id is unknown.
	Delete(ctx context.Context, id string) error
}

// memoryAgentStateStore keeps documents in process memory.
type memoryAgentStateStore struct {
	mu     sync.Mutex
	states map[string]models.DashboardState
}

// NewMemoryAgentStateStore creates an empty in-memory store.
func NewMemoryAgentStateStore() AgentStateStore {
	return &memoryAgentStateStore{
		states: make(map[string]models.DashboardState),
	}
}

var _ AgentStateStore = (*memoryAgentStateStore)(nil)

func (s *memoryAgentStateStore) Create(ctx context.Context, id string, initial models.DashboardState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.states[id]; exists {
		return fmt.Errorf("agent state %s: %w", id, apperrors.ErrConflict)
	}
	// Round-trip through the field encoding so later patches never alias
	// the caller's pointers.
	fields, err := initial.Fields()
	if err != nil {
		return err
	}
	state, err := models.DashboardState{}.ApplyPatch(fields)
	if err != nil {
		return err
	}
	s.states[id] = state
	return nil
}

func (s *memoryAgentStateStore) Get(ctx context.Context, id string) (*models.DashboardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[id]
	if !ok {
		return nil, fmt.Errorf("agent state %s: %w", id, apperrors.ErrNotFound)
	}
	fields, err := state.Fields()
	if err != nil {
		return nil, err
	}
	cp, err := models.DashboardState{}.ApplyPatch(fields)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *memoryAgentStateStore) Patch(ctx context.Context, id string, patch models.StatePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[id]
	if !ok {
		return fmt.Errorf("agent state %s: %w", id, apperrors.ErrNotFound)
	}
	next, err := state.ApplyPatch(patch)
	if err != nil {
		return err
	}
	s.states[id] = next
	return nil
}

func (s *memoryAgentStateStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[id]; !ok {
		return fmt.Errorf("agent state %s: %w", id, apperrors.ErrNotFound)
	}
	delete(s.states, id)
	return nil
}

// redisAgentStateStore keeps each document as one Redis hash with one hash
// field per top-level document field, so a patch is a single HSET.
type redisAgentStateStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisAgentStateStore creates a store writing under keys prefix+id.
// A positive ttl is refreshed on every write.
func NewRedisAgentStateStore(client *redis.Client, prefix string, ttl time.Duration) AgentStateStore {
	return &redisAgentStateStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

var _ AgentStateStore = (*redisAgentStateStore)(nil)

func (s *redisAgentStateStore) key(id string) string {
	return s.prefix + id
}

func (s *redisAgentStateStore) Create(ctx context.Context, id string, initial models.DashboardState) error {
	fields, err := initial.Fields()
	if err != nil {
		return err
	}

	key := s.key(id)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("agent state %s: %w", id, apperrors.ErrConflict)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.write(ctx, pipe, key, fields)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return s.wrap("create", err)
	}
	return nil
}

func (s *redisAgentStateStore) Get(ctx context.Context, id string) (*models.DashboardState, error) {
	values, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read agent state %s: %w", id, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("agent state %s: %w", id, apperrors.ErrNotFound)
	}

	patch := make(models.StatePatch, len(values))
	for field, value := range values {
		patch[field] = []byte(value)
	}
	state, err := models.DashboardState{}.ApplyPatch(patch)
	if err != nil {
		return nil, fmt.Errorf("corrupt agent state %s: %w", id, err)
	}
	return &state, nil
}

func (s *redisAgentStateStore) Patch(ctx context.Context, id string, patch models.StatePatch) error {
	// Reject unknown fields before anything is written.
	if _, err := (models.DashboardState{}).ApplyPatch(patch); err != nil {
		return err
	}

	key := s.key(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("agent state %s: %w", id, apperrors.ErrNotFound)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.write(ctx, pipe, key, patch)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return s.wrap("patch", err)
	}
	return nil
}

func (s *redisAgentStateStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return s.wrap("delete", err)
	}
	if n == 0 {
		return fmt.Errorf("agent state %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (s *redisAgentStateStore) write(ctx context.Context, pipe redis.Pipeliner, key string, fields models.StatePatch) {
	values := make(map[string]any, len(fields))
	for field, raw := range fields {
		values[field] = string(raw)
	}
	if len(values) > 0 {
		pipe.HSet(ctx, key, values)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

func (s *redisAgentStateStore) wrap(op string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) {
		return err
	}
	return fmt.Errorf("failed to %s agent state: %w", op, err)
}
