package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/signalsfoundry/gridgen/model"
)

// scenarioKeyPrefix namespaces scenario documents in Redis.
const scenarioKeyPrefix = "gridgen:scenario:"

// RedisSource reads scenario documents from a shared Redis instance, letting
// several gridgen deployments retrieve against a common scenario pool.
// Documents are stored as JSON under gridgen:scenario:<id>.
type RedisSource struct {
	client *redis.Client
}

// NewRedisSource wraps an existing Redis client.
func NewRedisSource(client *redis.Client) *RedisSource {
	return &RedisSource{client: client}
}

// Publish stores a scenario document for other deployments to retrieve.
func (s *RedisSource) Publish(ctx context.Context, sc *model.Scenario) error {
	doc, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode scenario %q: %w", sc.Key(), err)
	}
	if err := s.client.Set(ctx, scenarioKeyPrefix+sc.Key(), doc, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Scenarios scans the scenario namespace and decodes every document.
// Entries that fail to decode are skipped rather than failing the whole
// retrieval; a pool shared across versions may hold older shapes.
func (s *RedisSource) Scenarios(ctx context.Context) ([]*model.Scenario, error) {
	var out []*model.Scenario

	iter := s.client.Scan(ctx, 0, scenarioKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		doc, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		var sc model.Scenario
		if err := json.Unmarshal(doc, &sc); err != nil {
			continue
		}
		out = append(out, &sc)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return out, nil
}

var _ Source = (*RedisSource)(nil)
