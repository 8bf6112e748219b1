package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfigWhenMissing(t *testing.T) {
	req := require.New(t)
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(&logger, path)
	req.NoError(err)
	req.Equal(path, resolved)
	req.Equal(Default(), cfg)

	_, statErr := os.Stat(path)
	req.NoError(statErr, "default config should be written")
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	req := require.New(t)
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yaml")

	content := []byte("addr: \":9000\"\nhistory_limit: 10\nroom_idle_ttl: 30s\n")
	req.NoError(os.WriteFile(path, content, 0o600))

	t.Setenv("ROOMCHAT_HISTORY_LIMIT", "25")

	cfg, _, err := Load(&logger, path)
	req.NoError(err)
	req.Equal(":9000", cfg.Addr)
	req.Equal(25, cfg.HistoryLimit)
	req.Equal(30*time.Second, cfg.RoomIdleTTL)
	req.Equal(Default().SendBuffer, cfg.SendBuffer)
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1234", TicketTTL: time.Hour})

	if cfg.Addr != ":1234" || cfg.TicketTTL != time.Hour {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.HistoryLimit != Default().HistoryLimit {
		t.Fatalf("zero override replaced history limit: %d", cfg.HistoryLimit)
	}
}
