package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gotodo/apiserver/types"
)

// TodoRepository handles persistence for todos. Every read and write is
// scoped to the owning user; an id that exists under another owner is
// indistinguishable from one that does not exist.
type TodoRepository struct {
	db *sql.DB
}

func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

func (r *TodoRepository) List(ctx context.Context, ownerID string) ([]types.Todo, error) {
	const query = `
		SELECT id, user_id, text, completed, category, tags, priority, due_date, created_at, updated_at
		FROM todos
		WHERE user_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]types.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return todos, nil
}

func (r *TodoRepository) Get(ctx context.Context, ownerID, id string) (types.Todo, error) {
	const query = `
		SELECT id, user_id, text, completed, category, tags, priority, due_date, created_at, updated_at
		FROM todos
		WHERE id = $1 AND user_id = $2`
	row := r.db.QueryRowContext(ctx, query, id, ownerID)
	todo, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Todo{}, ErrNotFound
		}
		return types.Todo{}, err
	}
	return todo, nil
}

func (r *TodoRepository) Create(ctx context.Context, todo types.Todo) (types.Todo, error) {
	now := time.Now()
	todo.ID = uuid.NewString()
	todo.CreatedAt = now
	todo.UpdatedAt = now

	tagsJSON, err := marshalTags(todo.Tags)
	if err != nil {
		return types.Todo{}, err
	}

	const query = `
		INSERT INTO todos (id, user_id, text, completed, category, tags, priority, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		todo.ID,
		todo.UserID,
		todo.Text,
		todo.Completed,
		todo.Category,
		tagsJSON,
		todo.Priority,
		todo.DueDate,
		todo.CreatedAt,
		todo.UpdatedAt,
	); err != nil {
		return types.Todo{}, err
	}

	return todo, nil
}

// ToggleCompleted flips the completion flag of the owner's todo inside a
// single transaction. The row is locked for the read-modify-write so
// concurrent toggles of the same todo cannot lose updates.
func (r *TodoRepository) ToggleCompleted(ctx context.Context, ownerID, id string) (types.Todo, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Todo{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const selectQuery = `
		SELECT id, user_id, text, completed, category, tags, priority, due_date, created_at, updated_at
		FROM todos
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`
	row := tx.QueryRowContext(ctx, selectQuery, id, ownerID)
	todo, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Todo{}, ErrNotFound
		}
		return types.Todo{}, err
	}

	todo.Completed = !todo.Completed
	todo.UpdatedAt = time.Now()

	const updateQuery = `
		UPDATE todos
		SET completed = $1, updated_at = $2
		WHERE id = $3`
	if _, err := tx.ExecContext(ctx, updateQuery, todo.Completed, todo.UpdatedAt, todo.ID); err != nil {
		return types.Todo{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Todo{}, err
	}

	return todo, nil
}

func (r *TodoRepository) Update(ctx context.Context, todo types.Todo) (types.Todo, error) {
	todo.UpdatedAt = time.Now()

	tagsJSON, err := marshalTags(todo.Tags)
	if err != nil {
		return types.Todo{}, err
	}

	const query = `
		UPDATE todos
		SET text = $1,
			category = $2,
			tags = $3,
			priority = $4,
			due_date = $5,
			updated_at = $6
		WHERE id = $7 AND user_id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		todo.Text,
		todo.Category,
		tagsJSON,
		todo.Priority,
		todo.DueDate,
		todo.UpdatedAt,
		todo.ID,
		todo.UserID,
	)
	if err != nil {
		return types.Todo{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Todo{}, err
	}
	if affected == 0 {
		return types.Todo{}, ErrNotFound
	}

	return r.Get(ctx, derefOwner(todo.UserID), todo.ID)
}

func (r *TodoRepository) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM todos WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TodoRepository) Categories(ctx context.Context, ownerID string) ([]string, error) {
	const query = `
		SELECT DISTINCT category
		FROM todos
		WHERE user_id = $1 AND category IS NOT NULL
		ORDER BY category`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (types.Todo, error) {
	var todo types.Todo
	var tagsJSON []byte
	var priority sql.NullString
	if err := row.Scan(
		&todo.ID,
		&todo.UserID,
		&todo.Text,
		&todo.Completed,
		&todo.Category,
		&tagsJSON,
		&priority,
		&todo.DueDate,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	); err != nil {
		return types.Todo{}, err
	}

	if tagsJSON != nil {
		_ = json.Unmarshal(tagsJSON, &todo.Tags)
	}
	if priority.Valid {
		p := types.Priority(priority.String)
		todo.Priority = &p
	}
	return todo, nil
}

func marshalTags(tags []string) ([]byte, error) {
	if tags == nil {
		return nil, nil
	}
	return json.Marshal(tags)
}

func derefOwner(ownerID *string) string {
	if ownerID == nil {
		return ""
	}
	return *ownerID
}
