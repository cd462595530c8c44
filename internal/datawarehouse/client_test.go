package datawarehouse

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantDB   string
	}{
		{name: "host port and database", url: "dw.example.com:1444/reporting", wantHost: "dw.example.com:1444", wantDB: "reporting"},
		{name: "default port", url: "dw.example.com/reporting", wantHost: "dw.example.com:1433", wantDB: "reporting"},
		{name: "no database", url: "dw.example.com:1433", wantHost: "dw.example.com:1433", wantDB: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := buildConnectionString(&config.DataWarehouseConfig{
				URL:      tt.url,
				User:     "reporter",
				Password: "p@ss/word",
			})

			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, "sqlserver", u.Scheme)
			assert.Equal(t, tt.wantHost, u.Host)
			assert.Equal(t, "reporter", u.User.Username())
			password, _ := u.User.Password()
			assert.Equal(t, "p@ss/word", password)
			assert.Equal(t, "true", u.Query().Get("encrypt"))
			assert.Equal(t, tt.wantDB, u.Query().Get("database"))
		})
	}
}

func TestNewClient_Disabled(t *testing.T) {
	client, err := NewClient(&config.DataWarehouseConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, client)

	// enabled without credentials is treated as disabled
	client, err = NewClient(&config.DataWarehouseConfig{Enabled: true, URL: "dw:1433"}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNilClient(t *testing.T) {
	var client *Client

	assert.False(t, client.IsEnabled())
	assert.Equal(t, "disabled", client.HealthCheck(context.Background()).Status)
	assert.NoError(t, client.Close())

	_, err := client.PushNoteStats(context.Background(), time.Now(), []NoteStats{{NoteID: uuid.New(), Views: 1}})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestSnapshotDate(t *testing.T) {
	oslo := time.FixedZone("CET", 3600)
	taken := time.Date(2026, 3, 2, 0, 30, 0, 0, oslo)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), SnapshotDate(taken))
}
