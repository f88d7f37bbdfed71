package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/mkarlsen/stride/internal/run"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in maps behind a RWMutex. It backs tests and
// any caller that wants storage without persistence.
type MemoryStore struct {
	mu       sync.RWMutex
	workouts map[string]run.Workout
	routes   map[string]run.Route
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workouts: make(map[string]run.Workout),
		routes:   make(map[string]run.Route),
	}
}

func (m *MemoryStore) ReplaceSource(_ context.Context, source run.Source, workouts []run.Workout) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, w := range m.workouts {
		if w.Source == source {
			delete(m.workouts, id)
		}
	}
	for _, w := range workouts {
		m.workouts[w.ID] = w
	}
	return nil
}

func (m *MemoryStore) Workouts(_ context.Context) ([]run.Workout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]run.Workout, 0, len(m.workouts))
	for _, w := range m.workouts {
		out = append(out, w)
	}
	sortWorkouts(out)
	return out, nil
}

func (m *MemoryStore) WorkoutsBySource(_ context.Context, source run.Source) ([]run.Workout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []run.Workout
	for _, w := range m.workouts {
		if w.Source == source {
			out = append(out, w)
		}
	}
	sortWorkouts(out)
	return out, nil
}

func (m *MemoryStore) DeleteWorkout(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workouts, id)
	return nil
}

func (m *MemoryStore) PutRoute(_ context.Context, route *run.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[route.ID] = *route
	return nil
}

func (m *MemoryStore) Route(_ context.Context, id string) (*run.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.routes[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) Routes(_ context.Context) ([]run.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]run.Route, 0, len(m.routes))
	for _, r := range m.routes {
		out = append(out, r)
	}
	sortRoutes(out)
	return out, nil
}

func (m *MemoryStore) DeleteRoute(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.routes, id)
	return nil
}

func sortWorkouts(workouts []run.Workout) {
	sort.Slice(workouts, func(i, j int) bool {
		if !workouts[i].Start.Equal(workouts[j].Start) {
			return workouts[i].Start.Before(workouts[j].Start)
		}
		return workouts[i].ID < workouts[j].ID
	})
}

func sortRoutes(routes []run.Route) {
	sort.Slice(routes, func(i, j int) bool {
		if !routes[i].Start.Equal(routes[j].Start) {
			return routes[i].Start.Before(routes[j].Start)
		}
		return routes[i].ID < routes[j].ID
	})
}
