package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gotodo/apiserver/types"
)

// TodoRepository defines persistence operations for todos.
type TodoRepository interface {
	List(ctx context.Context, ownerID string) ([]types.Todo, error)
	Get(ctx context.Context, ownerID, id string) (types.Todo, error)
	Create(ctx context.Context, todo types.Todo) (types.Todo, error)
	ToggleCompleted(ctx context.Context, ownerID, id string) (types.Todo, error)
	Update(ctx context.Context, todo types.Todo) (types.Todo, error)
	Delete(ctx context.Context, ownerID, id string) error
	Categories(ctx context.Context, ownerID string) ([]string, error)
}

// NewTodo carries the client-supplied fields for creating or updating a todo.
type NewTodo struct {
	Text     string
	Category *string
	Tags     []string
	Priority *types.Priority
	DueDate  *time.Time
}

// TodoService encapsulates todo use-cases.
type TodoService struct {
	repo TodoRepository
}

func NewTodoService(repo TodoRepository) *TodoService {
	return &TodoService{repo: repo}
}

func (s *TodoService) Create(ctx context.Context, ownerID string, input NewTodo) (types.Todo, error) {
	if err := validateTodoInput(&input); err != nil {
		return types.Todo{}, err
	}

	return s.repo.Create(ctx, types.Todo{
		UserID:   &ownerID,
		Text:     input.Text,
		Category: input.Category,
		Tags:     input.Tags,
		Priority: input.Priority,
		DueDate:  input.DueDate,
	})
}

func (s *TodoService) List(ctx context.Context, ownerID string) ([]types.Todo, error) {
	return s.repo.List(ctx, ownerID)
}

func (s *TodoService) ToggleCompleted(ctx context.Context, ownerID, id string) (types.Todo, error) {
	return s.repo.ToggleCompleted(ctx, ownerID, id)
}

func (s *TodoService) Update(ctx context.Context, ownerID, id string, input NewTodo) (types.Todo, error) {
	if err := validateTodoInput(&input); err != nil {
		return types.Todo{}, err
	}

	return s.repo.Update(ctx, types.Todo{
		ID:       id,
		UserID:   &ownerID,
		Text:     input.Text,
		Category: input.Category,
		Tags:     input.Tags,
		Priority: input.Priority,
		DueDate:  input.DueDate,
	})
}

func (s *TodoService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

func (s *TodoService) Categories(ctx context.Context, ownerID string) ([]string, error) {
	return s.repo.Categories(ctx, ownerID)
}

func validateTodoInput(input *NewTodo) error {
	input.Text = strings.TrimSpace(input.Text)
	if input.Text == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return fmt.Errorf("%w: priority must be one of high, medium, low", ErrInvalidInput)
	}
	return nil
}
