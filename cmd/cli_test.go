package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixzlo/pixzlo-bridge/internal/adapters/native"
	boltstore "github.com/pixzlo/pixzlo-bridge/internal/adapters/storage/bolt"
	"github.com/pixzlo/pixzlo-bridge/internal/application"
	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileFixture = `{"success":true,"data":{"id":"user-1","email":"dev@pixzlo.test","workspaces":[
	{"id":"ws-1","name":"Acme","status":"active"},
	{"id":"ws-2","name":"Side project","status":"active"},
	{"id":"ws-3","name":"Invited","status":"pending"}]}}`

func newBackendServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, profileFixture)
	})
	mux.HandleFunc("/api/integrations/figma/metadata", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("workspace_id"))
		_, _ = io.WriteString(w, `{"success":true,"data":{"connected":true,"user":{"id":"f-1","handle":"devhandle"},"designLinks":[]}}`)
	})
	mux.HandleFunc("/api/integrations/linear/status", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{"connected":true,"organization":"acme"}}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func executeCLI(t *testing.T, home, backendURL string, args ...string) (string, string, error) {
	return executeCLIWithInput(t, home, backendURL, nil, args...)
}

func executeCLIWithInput(t *testing.T, home, backendURL string, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("PIXZLO_BACKEND_URL", backendURL)
	t.Setenv("PIXZLO_LOG_LEVEL", "error")

	root, cleanup := newRootCmd()
	defer func() { require.NoError(t, cleanup()) }()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNormalizeArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "browser launch", args: []string{"chrome-extension://abcdef/"}, want: []string{"serve", "chrome-extension://abcdef/"}},
		{name: "browser launch with parent window", args: []string{"chrome-extension://abcdef/", "--parent-window=42"}, want: []string{"serve", "chrome-extension://abcdef/"}},
		{name: "regular command", args: []string{"workspace", "show"}, want: []string{"workspace", "show"}},
		{name: "no args", args: []string{}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeArgs(tt.args))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "http://127.0.0.1:1", "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestInvalidConfigFailsEveryCommand(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "ftp://backend.test", "workspace", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url")
}

func TestWorkspaceShowFallsBackToFirstActiveWorkspace(t *testing.T) {
	home := t.TempDir()
	backend := newBackendServer(t)

	stdout, _, err := executeCLI(t, home, backend.URL, "workspace", "show")
	require.NoError(t, err)
	assert.Equal(t, "ws-1\n", stdout)
}

func TestWorkspaceSelectPersistsAcrossRuns(t *testing.T) {
	home := t.TempDir()
	backend := newBackendServer(t)

	_, _, err := executeCLI(t, home, backend.URL, "workspace", "select", "ws-2")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, backend.URL, "workspace", "show")
	require.NoError(t, err)
	assert.Equal(t, "ws-2\n", stdout)

	stdout, _, err = executeCLI(t, home, backend.URL, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "* ws-2\tSide project")
	assert.Contains(t, stdout, "  ws-1\tAcme")
	assert.NotContains(t, stdout, "ws-3")

	_, _, err = executeCLI(t, home, backend.URL, "workspace", "clear")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, backend.URL, "workspace", "show")
	require.NoError(t, err)
	assert.Equal(t, "ws-1\n", stdout)
}

func TestWorkspaceSelectWhileDatabaseLockedUsesFallbackFile(t *testing.T) {
	home := t.TempDir()
	backend := newBackendServer(t)
	ctx := context.Background()
	dbPath := filepath.Join(home, ".config", "pixzlo", "storage.db")

	running, err := boltstore.Open(dbPath)
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, backend.URL, "workspace", "select", "ws-2")
	require.NoError(t, err)

	fallback, err := os.ReadFile(filepath.Join(home, ".config", "pixzlo", "storage.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(fallback), "ws-2")
	_, err = running.Get(ctx, application.SelectedWorkspaceKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound, "the locked database is not written")
	require.NoError(t, running.Close())

	stdout, _, err := executeCLI(t, home, backend.URL, "workspace", "show")
	require.NoError(t, err)
	assert.Equal(t, "ws-2\n", stdout)

	reopened, err := boltstore.Open(dbPath)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()
	value, err := reopened.Get(ctx, application.SelectedWorkspaceKey)
	require.NoError(t, err)
	assert.Equal(t, "ws-2", value, "the fallback value is copied into the database once it is free")
}

func TestWorkspaceHelpExplainsLockedDatabase(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), newBackendServer(t).URL, "workspace", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "locked while the browser runs the native host")
	assert.Contains(t, stdout, "fallback file")
}

func TestSendListsMessageTypes(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), newBackendServer(t).URL, "send", "--list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "FIGMA_RENDER_FRAME")
	assert.Contains(t, stdout, "figma-fetch-metadata")
	assert.Contains(t, stdout, "WORKSPACE_CHANGED")
}

func TestSendDispatchesMessage(t *testing.T) {
	home := t.TempDir()
	backend := newBackendServer(t)

	stdout, _, err := executeCLI(t, home, backend.URL, "send", "WORKSPACE_CHANGED", `{"workspaceId":"ws-2"}`)
	require.NoError(t, err)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			WorkspaceID string `json:"workspaceId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "ws-2", response.Data.WorkspaceID)
}

func TestSendFailureReportsEnvelope(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), newBackendServer(t).URL, "send", "FIGMA_RENDER_FRAME", `{"figmaUrl":"https://www.figma.com/design/FILE123/Landing"}`)
	require.Error(t, err)
	assert.Contains(t, stdout, `"success": false`)
	assert.Contains(t, stdout, `"code": "validation"`)
}

func TestSendRejectsUnknownTypeAndBadJSON(t *testing.T) {
	home := t.TempDir()
	backend := newBackendServer(t)

	_, _, err := executeCLI(t, home, backend.URL, "send", "NOT_A_TYPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown message type")

	_, _, err = executeCLI(t, home, backend.URL, "send", "GET_WORKSPACE", "{nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestStatusRendersIntegrations(t *testing.T) {
	home := t.TempDir()
	backend := newBackendServer(t)

	stdout, _, err := executeCLI(t, home, backend.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pixzlo Bridge")
	assert.Contains(t, stdout, "dev@pixzlo.test")
	assert.Contains(t, stdout, "* Acme (ws-1)")
	assert.Contains(t, stdout, "connected as devhandle")
	assert.Contains(t, stdout, "connected to acme")
}

func TestStatusJSONOutput(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), newBackendServer(t).URL, "status", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, `"WorkspaceID": "ws-1"`)
	assert.NotContains(t, stdout, "FigmaErr")
}

func TestLinearIssueRequiresTitleAndTeam(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), newBackendServer(t).URL, "linear", "issue", "--team", "team-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "title" not set`)
}

func TestServeAnswersNativeMessages(t *testing.T) {
	home := t.TempDir()
	backend := newBackendServer(t)

	stdin := &bytes.Buffer{}
	require.NoError(t, native.WriteFrame(stdin, []byte(`{"id":1,"type":"GET_WORKSPACE"}`)))
	require.NoError(t, native.WriteFrame(stdin, []byte(`{"id":2,"type":"SOMETHING_ELSE"}`)))

	stdout, _, err := executeCLIWithInput(t, home, backend.URL, stdin, "serve", "chrome-extension://abcdef/")
	require.NoError(t, err)

	type frame struct {
		ID      int             `json:"id"`
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Code    string          `json:"code"`
	}
	frames := map[int]frame{}
	out := bytes.NewBufferString(stdout)
	for out.Len() > 0 {
		payload, err := native.ReadFrame(out)
		require.NoError(t, err)
		var f frame
		require.NoError(t, json.Unmarshal(payload, &f))
		frames[f.ID] = f
	}

	require.Len(t, frames, 2)
	assert.True(t, frames[1].Success)
	assert.JSONEq(t, `{"workspaceId":"ws-1"}`, string(frames[1].Data))
	assert.False(t, frames[2].Success)
	assert.Equal(t, "unhandled", frames[2].Code)
}
