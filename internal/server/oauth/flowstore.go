package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// FlowTTL bounds how long a user may take on the provider's consent page.
const FlowTTL = 10 * time.Minute

const flowKeyPrefix = "oauth:flow:"

// Flow is the server-side half of an authorization request, keyed by state.
type Flow struct {
	Provider models.OAuthProvider `json:"provider"`
	Verifier string               `json:"verifier"`
}

// FlowStore keeps Flow records between Authorize and Callback.
type FlowStore interface {
	Save(ctx context.Context, state string, flow Flow, ttl time.Duration) error
	// Take returns and deletes the flow. Missing or expired state yields
	// common.ErrOAuthStateInvalid.
	Take(ctx context.Context, state string) (*Flow, error)
}

// RedisFlowStore is a FlowStore shared between server replicas.
type RedisFlowStore struct {
	rdb *redis.Client
}

func NewRedisFlowStore(rdb *redis.Client) *RedisFlowStore {
	return &RedisFlowStore{rdb: rdb}
}

func (s *RedisFlowStore) Save(ctx context.Context, state string, flow Flow, ttl time.Duration) error {
	b, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, flowKeyPrefix+state, b, ttl).Err(); err != nil {
		return fmt.Errorf("saving oauth flow: %w", err)
	}
	return nil
}

// Take uses GETDEL so a state can be redeemed once even under concurrent
// callbacks.
func (s *RedisFlowStore) Take(ctx context.Context, state string) (*Flow, error) {
	if state == "" {
		return nil, common.ErrOAuthStateInvalid
	}

	b, err := s.rdb.GetDel(ctx, flowKeyPrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrOAuthStateInvalid
		}
		return nil, fmt.Errorf("loading oauth flow: %w", err)
	}

	var flow Flow
	if err := json.Unmarshal(b, &flow); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOAuthStateInvalid, err)
	}
	return &flow, nil
}
