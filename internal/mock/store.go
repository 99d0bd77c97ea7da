package mock

import (
	"sync"

	"github.com/studiowebux/todoload/internal/types"
)

// Store is an in-memory todo table with sequential IDs starting at 1
type Store struct {
	mu     sync.RWMutex
	todos  map[int]*types.Todo
	nextID int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		todos:  make(map[int]*types.Todo),
		nextID: 1,
	}
}

// Create inserts a todo and returns it with its assigned ID
func (s *Store) Create(record types.TodoRecord) types.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo := &types.Todo{
		ID:          s.nextID,
		Title:       record.Title,
		Description: record.Description,
		Completed:   record.Completed,
	}
	s.todos[todo.ID] = todo
	s.nextID++
	return *todo
}

// Get returns the todo with the given ID
func (s *Store) Get(id int) (types.Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	todo, ok := s.todos[id]
	if !ok {
		return types.Todo{}, false
	}
	return *todo, true
}

// List returns up to limit todos ordered by ID, skipping the first skip
func (s *Store) List(skip, limit int) []types.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.Todo, 0, min(limit, len(s.todos)))
	seen := 0
	for id := 1; id < s.nextID && len(result) < limit; id++ {
		todo, ok := s.todos[id]
		if !ok {
			continue
		}
		if seen < skip {
			seen++
			continue
		}
		result = append(result, *todo)
	}
	return result
}

// Update applies a partial update to the todo with the given ID
func (s *Store) Update(id int, update types.TodoUpdate) (types.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, ok := s.todos[id]
	if !ok {
		return types.Todo{}, false
	}
	update.Apply(todo)
	return *todo, true
}

// Delete removes the todo with the given ID and returns it
func (s *Store) Delete(id int) (types.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, ok := s.todos[id]
	if !ok {
		return types.Todo{}, false
	}
	delete(s.todos, id)
	return *todo, true
}

// Len returns the number of stored todos
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.todos)
}
