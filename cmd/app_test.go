package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calgateway/internal/calendar"
	"github.com/teemow/calgateway/internal/config"
)

// clearConfigEnv unsets every variable config.ApplyEnv reads.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvBaseURL,
		config.EnvClientID,
		config.EnvClientSecret,
		config.EnvHTTPTimeout,
		config.EnvExportSchedule,
		config.EnvJournalPath,
	} {
		t.Setenv(key, "")
	}
}

// newFlagCommand binds the persistent options to a fresh command and
// parses args into it.
func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	saved := globals
	t.Cleanup(func() { globals = saved })
	globals = globalOptions{}

	cmd := &cobra.Command{Use: "test"}
	flags := cmd.Flags()
	flags.StringVar(&globals.configPath, "config", "", "")
	flags.StringVar(&globals.baseURL, "base-url", "", "")
	flags.StringVar(&globals.clientID, "client-id", "", "")
	flags.StringVar(&globals.clientSecret, "client-secret", "", "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "calgateway.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url = "https://file.example.com/api"
client_id = "file-id"
client_secret = "file-secret"
http_timeout = "5s"

[export]
limit = 50
`), 0600))

	t.Setenv(config.EnvClientID, "env-id")
	t.Setenv(config.EnvClientSecret, "env-secret")

	cmd := newFlagCommand(t, "--config", path, "--client-secret", "flag-secret")

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com/api/", cfg.BaseURL)
	assert.Equal(t, "env-id", cfg.ClientID)
	assert.Equal(t, "flag-secret", cfg.ClientSecret)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 50, cfg.Export.Limit)
	assert.Equal(t, config.DefaultJournalPath, cfg.Journal.Path)
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "calgateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: ftp://example.com/\n"), 0600))

	cmd := newFlagCommand(t, "--config", path)

	_, err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "must be an absolute http(s) URL")
	assert.Contains(t, err.Error(), "client id is required")
}

func TestNewClients_SharesOneCredential(t *testing.T) {
	var authCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/Auth":
			authCalls.Add(1)
			_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
		case "/api/Events":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(calendar.EventPage{Items: sampleEvents(2)})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	cfg := config.DefaultConfig()
	cfg.BaseURL = upstream.URL + "/api/"
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"

	c := newClients(cfg, nil, nil)

	for i := 0; i < 3; i++ {
		page, err := c.gateway.ListEvents(context.Background(), calendar.EventQuery{Top: 20})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
	}
	assert.Equal(t, int32(1), authCalls.Load())
	assert.True(t, c.tokens.Snapshot().Valid)
}
