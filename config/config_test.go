package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
  ssl_mode: "disable"
kafka:
  host: "localhost"
  port: 9092
  processo_atualizado_topic_name: "processo.atualizado"
redis:
  host: "localhost"
  port: 6379
justrack:
  http_addr: ":8080"
  kafka_consumer_group: "justrack-api"
  retrato_ttl_seconds: 600
  worker_http_addr: ":8081"
  worker_tick_interval_seconds: 30
  fake_mode: true
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.Database.ConnString())
	require.Equal(t, "processo.atualizado", cfg.Kafka.ProcessoAtualizadoTopicName)
	require.Equal(t, "localhost:9092", cfg.Kafka.Addr())
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, ":8080", cfg.JusTrack.HTTPAddr)
	require.Equal(t, 30, cfg.JusTrack.WorkerTickIntervalSeconds)
	require.True(t, cfg.JusTrack.FakeMode)
}

func TestLoadConfig_ArquivoAusente(t *testing.T) {
	_, err := LoadConfig("/nao/existe.yaml")
	require.Error(t, err)
}
