package pgconsulta

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS consultas (
  id TEXT PRIMARY KEY,
  processo_id TEXT NOT NULL,
  numero_processo TEXT NOT NULL,
  tribunal_id TEXT NOT NULL,
  operacoes TEXT[] NOT NULL DEFAULT '{}',
  status TEXT NOT NULL,
  tentativas INT NOT NULL DEFAULT 0,
  max_tentativas INT NOT NULL DEFAULT 3,
  prioridade INT NOT NULL DEFAULT 0,
  lote_id TEXT NULL,
  monitoramento_id TEXT NULL,
  criada_em TIMESTAMPTZ NOT NULL,
  iniciada_em TIMESTAMPTZ NULL,
  concluida_em TIMESTAMPTZ NULL,
  ultimo_erro TEXT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_consultas_processo ON consultas(processo_id, tribunal_id)`,
		`CREATE INDEX IF NOT EXISTS idx_consultas_lote ON consultas(lote_id) WHERE lote_id IS NOT NULL`,
		`
CREATE TABLE IF NOT EXISTS consulta_resultados (
  id BIGSERIAL PRIMARY KEY,
  consulta_id TEXT NOT NULL REFERENCES consultas(id) ON DELETE CASCADE,
  sucesso BOOLEAN NOT NULL,
  consultado_em TIMESTAMPTZ NOT NULL,
  latencia_ms BIGINT NOT NULL DEFAULT 0,
  dados JSONB NULL,
  erro TEXT NULL,
  erro_tipo TEXT NULL,
  tem_alteracoes BOOLEAN NOT NULL DEFAULT FALSE,
  novas_movimentacoes INT NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS idx_resultados_consulta ON consulta_resultados(consulta_id, consultado_em DESC)`,
		`
CREATE TABLE IF NOT EXISTS processo_movimentacoes (
  id BIGSERIAL PRIMARY KEY,
  processo_id TEXT NOT NULL,
  tribunal_id TEXT NOT NULL,
  movimentacao_id TEXT NOT NULL,
  data TIMESTAMPTZ NOT NULL,
  descricao TEXT NOT NULL,
  complemento TEXT NOT NULL DEFAULT '',
  orgao TEXT NOT NULL DEFAULT '',
  criado_em TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_movimentacoes_processo ON processo_movimentacoes(processo_id, tribunal_id, data DESC)`,
		// A unicidade do snapshot é o que faz a detecção de alterações funcionar.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_movimentacoes_dedup ON processo_movimentacoes(processo_id, tribunal_id, movimentacao_id)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
