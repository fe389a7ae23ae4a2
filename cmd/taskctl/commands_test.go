package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	domain "github.com/example/student-task-manager/domain/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal task API holding tasks for a single token.
type fakeServer struct {
	mu     sync.Mutex
	token  string
	tasks  []domain.Task
	nextID int
	bodies []map[string]any
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	session := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token": f.token,
			"user":  map[string]string{"id": "u1", "name": "Ada", "email": "ada@example.com"},
		})
	}
	mux.HandleFunc("POST /api/auth/login", session)
	mux.HandleFunc("POST /api/auth/signup", session)
	mux.HandleFunc("GET /api/auth/me", f.authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "u1", "name": "Ada", "email": "ada@example.com"})
	}))
	mux.HandleFunc("GET /api/tasks", f.authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, f.tasks)
	}))
	mux.HandleFunc("POST /api/tasks", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var in domain.NewTask
		_ = json.NewDecoder(r.Body).Decode(&in)
		in.Normalize()
		f.nextID++
		t := domain.Task{
			ID:          fmt.Sprintf("t%d", f.nextID),
			UserID:      "u1",
			Title:       in.Title,
			Description: in.Description,
			Priority:    in.Priority,
			DueDate:     in.DueDate,
			CreatedAt:   time.Now(),
		}
		f.tasks = append([]domain.Task{t}, f.tasks...)
		writeJSON(w, http.StatusCreated, t)
	}))
	mux.HandleFunc("PUT /api/tasks/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var raw map[string]any
		_ = json.Unmarshal(body, &raw)
		f.bodies = append(f.bodies, raw)
		patch, err := domain.DecodePatch(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation_error", "message": err.Error()})
			return
		}
		for i := range f.tasks {
			if f.tasks[i].ID == r.PathValue("id") {
				f.tasks[i].Apply(patch)
				writeJSON(w, http.StatusOK, f.tasks[i])
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "Task not found"})
	}))
	mux.HandleFunc("DELETE /api/tasks/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		for i := range f.tasks {
			if f.tasks[i].ID == r.PathValue("id") {
				f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]string{"message": "Task removed"})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "Task not found"})
	}))
	return mux
}

func (f *fakeServer) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "message": "Invalid or expired token"})
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	t         *testing.T
	fake      *fakeServer
	server    string
	tokenFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TASKCTL_SERVER", "")
	t.Setenv("TASKCTL_TOKEN_FILE", "")
	t.Setenv("TASKCTL_PASSWORD", "")

	fake := &fakeServer{token: "tok-1"}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	return &harness{
		t:         t,
		fake:      fake,
		server:    srv.URL,
		tokenFile: filepath.Join(t.TempDir(), "token"),
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--server", h.server, "--token-file", h.tokenFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) login() {
	h.t.Helper()
	_, err := h.run("login", "--email", "ada@example.com", "--password", "secret123")
	require.NoError(h.t, err)
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out, err := h.run("login", "--email", "ada@example.com", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Ada")

	token, err := os.ReadFile(h.tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "tok-1\n", string(token))

	out, err = h.run("whoami")
	require.NoError(t, err)
	assert.Equal(t, "Ada <ada@example.com>\n", out)

	_, err = h.run("logout")
	require.NoError(t, err)
	assert.NoFileExists(t, h.tokenFile)
}

func TestLogin_PasswordFromEnv(t *testing.T) {
	h := newHarness(t)
	t.Setenv("TASKCTL_PASSWORD", "secret123")

	_, err := h.run("login", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.FileExists(t, h.tokenFile)
}

func TestLogin_RequiresCredentials(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "--email", "ada@example.com")
	assert.Error(t, err)
	assert.NoFileExists(t, h.tokenFile)
}

func TestSignup(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("signup", "--name", "Ada", "--email", "ada@example.com", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed up as Ada")
	assert.FileExists(t, h.tokenFile)
}

func TestExpiredToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, writeToken(h.tokenFile, "stale"))

	_, err := h.run("list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestAddAndList(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, err := h.run("add", "Buy milk", "--priority", "low")
	require.NoError(t, err)
	_, err = h.run("add", "--title", "File taxes", "-p", "high", "--due", "2024-04-15")
	require.NoError(t, err)
	_, err = h.run("add", "Call mom", "-d", "about the abacus")
	require.NoError(t, err)

	out, err := h.run("list", "--sort", "priority")
	require.NoError(t, err)
	lines := nonEmptyLines(out)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[1], "File taxes")
	assert.Contains(t, lines[1], "2024-04-15")
	assert.Contains(t, lines[2], "Call mom")
	assert.Contains(t, lines[3], "Buy milk")

	out, err = h.run("list", "--search", "MOM")
	require.NoError(t, err)
	assert.Len(t, nonEmptyLines(out), 2)
	assert.Contains(t, out, "Call mom")

	out, err = h.run("list", "--search", "abacus")
	require.NoError(t, err)
	assert.Equal(t, "No tasks\n", out, "search matches titles only")

	out, err = h.run("list", "--filter", "completed")
	require.NoError(t, err)
	assert.Equal(t, "No tasks\n", out)
}

func TestAdd_RejectsBadDueDate(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, err := h.run("add", "Buy milk", "--due", "tomorrow")
	assert.Error(t, err)
	assert.Empty(t, h.fake.tasks)
}

func TestListJSON(t *testing.T) {
	h := newHarness(t)
	h.login()
	_, err := h.run("add", "Buy milk")
	require.NoError(t, err)

	out, err := h.run("list", "--json")
	require.NoError(t, err)
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.PriorityMedium, tasks[0].Priority)
}

func TestToggleEditRemove(t *testing.T) {
	h := newHarness(t)
	h.login()
	_, err := h.run("add", "Buy milk", "--due", "2024-05-01")
	require.NoError(t, err)

	out, err := h.run("toggle", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1 is now completed\n", out)
	assert.True(t, h.fake.tasks[0].Completed)

	_, err = h.run("edit", "t1", "--title", "Buy oat milk", "--clear-due")
	require.NoError(t, err)
	last := h.fake.bodies[len(h.fake.bodies)-1]
	assert.Equal(t, map[string]any{"title": "Buy oat milk", "dueDate": nil}, last)
	assert.Nil(t, h.fake.tasks[0].DueDate)

	_, err = h.run("edit", "t1", "--completed=false")
	require.NoError(t, err)
	assert.False(t, h.fake.tasks[0].Completed)

	_, err = h.run("edit", "t1")
	assert.Error(t, err, "an edit with no fields is refused")

	_, err = h.run("toggle", "missing")
	assert.Error(t, err)

	out, err = h.run("rm", "t1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted t1\n", out)
	assert.Empty(t, h.fake.tasks)
}

func TestSettingsPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TASKCTL_TOKEN_FILE", "")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server: http://from-config\ntimeout: 2s\n"), 0o600))

	tests := []struct {
		name       string
		env        string
		args       []string
		wantServer string
	}{
		{"config file", "", nil, "http://from-config"},
		{"env over config", "http://from-env", nil, "http://from-env"},
		{"flag over env", "http://from-env", []string{"--server", "http://from-flag"}, "http://from-flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TASKCTL_SERVER", tt.env)
			a, root := newCLI(io.Discard)
			root.SetArgs(append(append([]string{"--config", cfgPath}, tt.args...), "logout"))
			require.NoError(t, root.Execute())

			assert.Equal(t, tt.wantServer, a.server)
			assert.Equal(t, 2*time.Second, a.timeout)
			assert.Equal(t, filepath.Join(home, ".taskctl", "token"), a.tokenFile)
		})
	}
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, l := range bytes.Split([]byte(s), []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			lines = append(lines, string(l))
		}
	}
	return lines
}
