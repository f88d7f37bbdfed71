package storage

import (
	"context"
	"fmt"

	go_json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/mkarlsen/stride/internal/run"
)

var _ Store = (*RedisStore)(nil)

const (
	workoutKeyPrefix = "stride:workout:"
	sourceSetPrefix  = "stride:workouts:source:"
	routeKeyPrefix   = "stride:route:"
	routeSetKey      = "stride:routes"
)

// RedisStore stores records as JSON values, with a set per workout source and
// one set of route ids for enumeration.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) ReplaceSource(ctx context.Context, source run.Source, workouts []run.Workout) error {
	setKey := sourceSetPrefix + string(source)

	existing, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("listing source set %s: %w", source, err)
	}

	pipe := s.client.TxPipeline()
	for _, id := range existing {
		pipe.Del(ctx, workoutKeyPrefix+id)
	}
	pipe.Del(ctx, setKey)

	for i := range workouts {
		w := &workouts[i]
		data, err := go_json.Marshal(w)
		if err != nil {
			return fmt.Errorf("encoding workout %s: %w", w.ID, err)
		}
		pipe.Set(ctx, workoutKeyPrefix+w.ID, data, 0)
		pipe.SAdd(ctx, setKey, w.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing source %s: %w", source, err)
	}
	return nil
}

func (s *RedisStore) Workouts(ctx context.Context) ([]run.Workout, error) {
	var out []run.Workout
	for _, source := range []run.Source{run.SourceHealthExport, run.SourceStrava, run.SourceOther} {
		workouts, err := s.WorkoutsBySource(ctx, source)
		if err != nil {
			return nil, err
		}
		out = append(out, workouts...)
	}
	sortWorkouts(out)
	return out, nil
}

func (s *RedisStore) WorkoutsBySource(ctx context.Context, source run.Source) ([]run.Workout, error) {
	ids, err := s.client.SMembers(ctx, sourceSetPrefix+string(source)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing source set %s: %w", source, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = workoutKeyPrefix + id
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching workouts: %w", err)
	}

	out := make([]run.Workout, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			// Value expired or was deleted between SMEMBERS and MGET.
			continue
		}
		var w run.Workout
		if err := go_json.Unmarshal([]byte(str), &w); err != nil {
			return nil, fmt.Errorf("decoding workout: %w", err)
		}
		out = append(out, w)
	}
	sortWorkouts(out)
	return out, nil
}

func (s *RedisStore) DeleteWorkout(ctx context.Context, id string) error {
	var w run.Workout
	data, err := s.client.Get(ctx, workoutKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetching workout %s: %w", id, err)
	}
	if err := go_json.Unmarshal([]byte(data), &w); err != nil {
		return fmt.Errorf("decoding workout %s: %w", id, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, workoutKeyPrefix+id)
	pipe.SRem(ctx, sourceSetPrefix+string(w.Source), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) PutRoute(ctx context.Context, route *run.Route) error {
	data, err := go_json.Marshal(route)
	if err != nil {
		return fmt.Errorf("encoding route %s: %w", route.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, routeKeyPrefix+route.ID, data, 0)
	pipe.SAdd(ctx, routeSetKey, route.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing route %s: %w", route.ID, err)
	}
	return nil
}

func (s *RedisStore) Route(ctx context.Context, id string) (*run.Route, error) {
	data, err := s.client.Get(ctx, routeKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching route %s: %w", id, err)
	}

	var route run.Route
	if err := go_json.Unmarshal([]byte(data), &route); err != nil {
		return nil, fmt.Errorf("decoding route %s: %w", id, err)
	}
	return &route, nil
}

func (s *RedisStore) Routes(ctx context.Context) ([]run.Route, error) {
	ids, err := s.client.SMembers(ctx, routeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = routeKeyPrefix + id
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching routes: %w", err)
	}

	out := make([]run.Route, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var route run.Route
		if err := go_json.Unmarshal([]byte(str), &route); err != nil {
			return nil, fmt.Errorf("decoding route: %w", err)
		}
		out = append(out, route)
	}
	sortRoutes(out)
	return out, nil
}

func (s *RedisStore) DeleteRoute(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, routeKeyPrefix+id)
	pipe.SRem(ctx, routeSetKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting route %s: %w", id, err)
	}
	return nil
}
