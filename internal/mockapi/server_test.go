package mockapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemviz/chemviz/internal/api"
)

func newTestServer(t *testing.T) (*httptest.Server, *api.Client) {
	t.Helper()
	ts := httptest.NewServer(New(nil).Router())
	t.Cleanup(ts.Close)
	return ts, api.NewClient(ts.URL, ts.Client())
}

func TestDemoAccountFlow(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	token, err := client.Login(ctx, "demo", "demo")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	client.SetToken(token)

	user, err := client.Profile(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "demo", user.Username)
	assert.Equal(t, "demo@example.com", user.Email)

	sessions, err := client.History(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	// Seeded history is newest first.
	assert.Equal(t, "3", sessions[0].ID)
	assert.NotEmpty(t, sessions[0].Distribution)
}

func TestLogin_Rejected(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.Login(context.Background(), "demo", "wrong")
	var authErr *api.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.History(context.Background())
	require.Error(t, err)

	_, err = client.Profile(context.Background(), "bogus-token")
	require.Error(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	resp, err := client.Register(ctx, "operator", "hunter2", "op@example.com")
	require.NoError(t, err)
	assert.Equal(t, "operator", resp.Username)
	assert.NotZero(t, resp.ID)

	// Registration does not establish a session; a fresh account has
	// no history after logging in.
	token, err := client.Login(ctx, "operator", "hunter2")
	require.NoError(t, err)
	client.SetToken(token)

	sessions, err := client.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.Register(context.Background(), "demo", "other", "x@example.com")
	var regErr *api.RegisterError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "Username already exists", regErr.Message)
}

func TestPasswordReset(t *testing.T) {
	_, client := newTestServer(t)

	resp, err := client.RequestPasswordReset(context.Background(), "demo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Password reset email sent", resp.Message)
}

func TestUploadPrependsToHistory(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	token, err := client.Login(ctx, "demo", "demo")
	require.NoError(t, err)
	client.SetToken(token)

	path := filepath.Join(t.TempDir(), "batch.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,type\np1,Pump\n"), 0o600))

	session, err := client.UploadCSV(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "batch.csv", session.FileName)
	assert.NotZero(t, session.TotalCount)

	sessions, err := client.History(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sessions)
	assert.Equal(t, session.ID, sessions[0].ID)
}

func TestHistoryCapped(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	token, err := client.Login(ctx, "demo", "demo")
	require.NoError(t, err)
	client.SetToken(token)

	path := filepath.Join(t.TempDir(), "more.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,type\np1,Pump\n"), 0o600))

	// Three seeded sessions plus four uploads exceed the cap.
	for i := 0; i < 4; i++ {
		_, err := client.UploadCSV(ctx, path)
		require.NoError(t, err)
	}

	sessions, err := client.History(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, historyLimit)
}

func TestGenerateReport_Formats(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	token, err := client.Login(ctx, "demo", "demo")
	require.NoError(t, err)
	client.SetToken(token)

	sessions, err := client.History(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sessions)
	id := sessions[0].ID

	jsonBlob, err := client.GenerateReport(ctx, id, api.ReportJSON)
	require.NoError(t, err)
	var decoded api.Session
	require.NoError(t, json.Unmarshal(jsonBlob, &decoded))
	assert.Equal(t, id, decoded.ID)

	csvBlob, err := client.GenerateReport(ctx, id, api.ReportCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvBlob)), "\n")
	assert.Equal(t, "category,count", lines[0])
	assert.Len(t, lines, 1+len(sessions[0].Distribution))

	pdfBlob, err := client.GenerateReport(ctx, id, api.ReportPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdfBlob), "%PDF"))
}

func TestGenerateReport_UnknownSession(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	token, err := client.Login(ctx, "demo", "demo")
	require.NoError(t, err)
	client.SetToken(token)

	_, err = client.GenerateReport(ctx, "999", api.ReportJSON)
	require.Error(t, err)
}
