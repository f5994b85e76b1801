//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gotodo/apiserver/config"
	"github.com/gotodo/apiserver/internal/server"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestTodoLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("alice_%d", time.Now().UnixNano())
	password := "pw123456"

	if err := registerUser(t, baseURL, username, password); err != nil {
		t.Fatalf("register user: %v", err)
	}

	token, err := loginUser(t, baseURL, username, password)
	if err != nil {
		t.Fatalf("login user: %v", err)
	}

	created, err := createTodo(t, baseURL, token, map[string]any{
		"text":     "Buy milk",
		"priority": "high",
	})
	if err != nil {
		t.Fatalf("create todo: %v", err)
	}
	if created.Completed {
		t.Fatalf("expected new todo to be incomplete")
	}
	if created.ID == "" {
		t.Fatalf("expected todo ID to be set")
	}

	todos, err := listTodos(t, baseURL, token)
	if err != nil {
		t.Fatalf("list todos: %v", err)
	}
	if len(todos) != 1 || todos[0].ID != created.ID {
		t.Fatalf("expected list to contain exactly the created todo, got %d", len(todos))
	}

	toggled, err := toggleTodo(t, baseURL, token, created.ID)
	if err != nil {
		t.Fatalf("toggle todo: %v", err)
	}
	if !toggled.Completed {
		t.Fatalf("expected toggled todo to be completed")
	}

	toggled, err = toggleTodo(t, baseURL, token, created.ID)
	if err != nil {
		t.Fatalf("toggle todo back: %v", err)
	}
	if toggled.Completed {
		t.Fatalf("expected double toggle to restore completion state")
	}

	categories, err := listCategories(t, baseURL, token)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 0 {
		t.Fatalf("expected no categories, got %v", categories)
	}

	// A second user cannot see or toggle the first user's todo.
	otherName := fmt.Sprintf("bob_%d", time.Now().UnixNano())
	if err := registerUser(t, baseURL, otherName, password); err != nil {
		t.Fatalf("register second user: %v", err)
	}
	otherToken, err := loginUser(t, baseURL, otherName, password)
	if err != nil {
		t.Fatalf("login second user: %v", err)
	}

	otherTodos, err := listTodos(t, baseURL, otherToken)
	if err != nil {
		t.Fatalf("list second user's todos: %v", err)
	}
	if len(otherTodos) != 0 {
		t.Fatalf("expected second user to see no todos, got %d", len(otherTodos))
	}

	if status := toggleStatus(t, baseURL, otherToken, created.ID); status != http.StatusNotFound {
		t.Fatalf("expected cross-owner toggle to 404, got %d", status)
	}
}

type todoResponse struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func registerUser(t *testing.T, baseURL, username, password string) error {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"email":    fmt.Sprintf("%s@example.com", username),
		"password": password,
	}
	resp, err := postJSON(baseURL+"/auth/register", payload, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func loginUser(t *testing.T, baseURL, username, password string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"password": password,
	}
	resp, err := postJSON(baseURL+"/auth/login", payload, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in login response")
	}
	return parsed.Token, nil
}

func createTodo(t *testing.T, baseURL, token string, payload map[string]any) (todoResponse, error) {
	t.Helper()

	resp, err := postJSON(baseURL+"/todos", payload, token)
	if err != nil {
		return todoResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return todoResponse{}, fmt.Errorf("create todo status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed todoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return todoResponse{}, err
	}
	return parsed, nil
}

func listTodos(t *testing.T, baseURL, token string) ([]todoResponse, error) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/todos", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list todos status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed []todoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func toggleTodo(t *testing.T, baseURL, token, id string) (todoResponse, error) {
	t.Helper()

	resp, err := postJSON(baseURL+"/toggle/"+id, nil, token)
	if err != nil {
		return todoResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return todoResponse{}, fmt.Errorf("toggle status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed todoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return todoResponse{}, err
	}
	return parsed, nil
}

func toggleStatus(t *testing.T, baseURL, token, id string) int {
	t.Helper()

	resp, err := postJSON(baseURL+"/toggle/"+id, nil, token)
	if err != nil {
		t.Fatalf("toggle request: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func listCategories(t *testing.T, baseURL, token string) ([]string, error) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/categories", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list categories status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed []string
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func postJSON(url string, payload any, token string) (*http.Response, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return http.DefaultClient.Do(req)
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "gotodo")
	_ = os.Setenv("DB_PASSWORD", "gotodo")
	_ = os.Setenv("DB_NAME", "gotodo")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
