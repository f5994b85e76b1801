// Package storetest provides in-memory repository implementations that
// mirror the postgres store semantics (owner scoping, sentinel errors,
// deterministic list order) for use in unit tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gotodo/apiserver/internal/store"
	"github.com/gotodo/apiserver/types"
)

// UserRepository is an in-memory stand-in for store.UserRepository.
type UserRepository struct {
	mu    sync.Mutex
	users map[string]types.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]types.User)}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

// TodoRepository is an in-memory stand-in for store.TodoRepository.
type TodoRepository struct {
	mu    sync.Mutex
	todos map[string]types.Todo
	seq   int
}

func NewTodoRepository() *TodoRepository {
	return &TodoRepository{todos: make(map[string]types.Todo)}
}

func (r *TodoRepository) List(ctx context.Context, ownerID string) ([]types.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	todos := make([]types.Todo, 0)
	for _, todo := range r.todos {
		if todo.UserID != nil && *todo.UserID == ownerID {
			todos = append(todos, todo)
		}
	}
	sort.Slice(todos, func(i, j int) bool {
		if todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].ID < todos[j].ID
		}
		return todos[i].CreatedAt.Before(todos[j].CreatedAt)
	})
	return todos, nil
}

func (r *TodoRepository) Get(ctx context.Context, ownerID, id string) (types.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(ownerID, id)
}

func (r *TodoRepository) Create(ctx context.Context, todo types.Todo) (types.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Monotonic timestamps keep list order deterministic even when
	// several creates land within the clock resolution.
	r.seq++
	now := time.Now().Add(time.Duration(r.seq) * time.Microsecond)
	todo.ID = uuid.NewString()
	todo.CreatedAt = now
	todo.UpdatedAt = now
	r.todos[todo.ID] = todo
	return todo, nil
}

func (r *TodoRepository) ToggleCompleted(ctx context.Context, ownerID, id string) (types.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	todo, err := r.getLocked(ownerID, id)
	if err != nil {
		return types.Todo{}, err
	}
	todo.Completed = !todo.Completed
	todo.UpdatedAt = time.Now()
	r.todos[todo.ID] = todo
	return todo, nil
}

func (r *TodoRepository) Update(ctx context.Context, todo types.Todo) (types.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ownerID := ""
	if todo.UserID != nil {
		ownerID = *todo.UserID
	}
	existing, err := r.getLocked(ownerID, todo.ID)
	if err != nil {
		return types.Todo{}, err
	}
	existing.Text = todo.Text
	existing.Category = todo.Category
	existing.Tags = todo.Tags
	existing.Priority = todo.Priority
	existing.DueDate = todo.DueDate
	existing.UpdatedAt = time.Now()
	r.todos[existing.ID] = existing
	return existing, nil
}

func (r *TodoRepository) Delete(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.getLocked(ownerID, id); err != nil {
		return err
	}
	delete(r.todos, id)
	return nil
}

func (r *TodoRepository) Categories(ctx context.Context, ownerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, todo := range r.todos {
		if todo.UserID == nil || *todo.UserID != ownerID {
			continue
		}
		if todo.Category == nil || seen[*todo.Category] {
			continue
		}
		seen[*todo.Category] = true
		categories = append(categories, *todo.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (r *TodoRepository) getLocked(ownerID, id string) (types.Todo, error) {
	todo, ok := r.todos[id]
	if !ok {
		return types.Todo{}, store.ErrNotFound
	}
	if todo.UserID == nil || *todo.UserID != ownerID {
		return types.Todo{}, store.ErrNotFound
	}
	return todo, nil
}
