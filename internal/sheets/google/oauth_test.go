package google

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
)

const testOAuthClient = `{"installed":{"client_id":"cid.apps.googleusercontent.com","client_secret":"secret",
"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",
"redirect_uris":["http://localhost"]}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(testOAuthClient))
	require.NoError(t, err)
	assert.Equal(t, "cid.apps.googleusercontent.com", cfg.ClientID)
	assert.Contains(t, cfg.Scopes, "https://www.googleapis.com/auth/spreadsheets")

	_, err = OAuthConfig([]byte(`{}`))
	assert.Error(t, err)
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}
	require.NoError(t, SaveToken(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.Equal(t, "r", got.RefreshToken)
}

func TestLoadTokenErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadToken(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "read oauth token")

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0600))
	_, err = LoadToken(empty)
	assert.ErrorContains(t, err, "no access or refresh token")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`nope`), 0600))
	_, err = LoadToken(bad)
	assert.ErrorContains(t, err, "decode oauth token")
}

func TestReadOAuthClient(t *testing.T) {
	b, err := ReadOAuthClient(" {} ", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))

	_, err = ReadOAuthClient("", "")
	assert.Error(t, err)

	_, err = ReadOAuthClient("", "/non/existent.json")
	assert.ErrorContains(t, err, "read oauth client file")
}

func TestNewWithOAuthSendsBearerToken(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(tokenFile, &oauth2.Token{
		AccessToken: "user-token",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	c, err := New(context.Background(), Config{
		SpreadsheetID:   "sheet-1",
		OAuthClientJSON: testOAuthClient,
		OAuthTokenFile:  tokenFile,
	}, goption.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	_, err = c.ExportTransaction(context.Background(), sampleTx("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", fake.lastAuth)
}
