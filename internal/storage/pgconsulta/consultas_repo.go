package pgconsulta

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/JusTrack/JusTrack/internal/models"
)

func (s *Storage) GravarConsulta(ctx context.Context, c *models.ConsultaTribunal) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO consultas (
  id, processo_id, numero_processo, tribunal_id, operacoes,
  status, tentativas, max_tentativas, prioridade,
  lote_id, monitoramento_id, criada_em
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),NULLIF($11,''),$12)
`, c.ID, c.ProcessoID, c.NumeroProcesso, c.TribunalID, c.Operacoes,
		c.Status, c.Tentativas, c.MaxTentativas, c.Prioridade,
		c.LoteID, c.MonitoramentoID, c.CriadaEm.UTC())
	return errors.Wrap(err, "insert consulta")
}

func (s *Storage) AtualizarConsulta(ctx context.Context, c *models.ConsultaTribunal) error {
	_, err := s.db.Exec(ctx, `
UPDATE consultas
SET
  status = $2,
  tentativas = $3,
  iniciada_em = $4,
  concluida_em = $5,
  ultimo_erro = NULLIF($6,'')
WHERE id = $1
`, c.ID, c.Status, c.Tentativas, c.IniciadaEm, c.ConcluidaEm, c.UltimoErro)
	return errors.Wrap(err, "update consulta")
}

func (s *Storage) ObterConsulta(ctx context.Context, id string) (*models.ConsultaTribunal, error) {
	var c models.ConsultaTribunal
	var loteID, monitoramentoID, ultimoErro *string
	err := s.db.QueryRow(ctx, `
SELECT
  id, processo_id, numero_processo, tribunal_id, operacoes,
  status, tentativas, max_tentativas, prioridade,
  lote_id, monitoramento_id, criada_em, iniciada_em, concluida_em, ultimo_erro
FROM consultas
WHERE id = $1
`, id).Scan(
		&c.ID, &c.ProcessoID, &c.NumeroProcesso, &c.TribunalID, &c.Operacoes,
		&c.Status, &c.Tentativas, &c.MaxTentativas, &c.Prioridade,
		&loteID, &monitoramentoID, &c.CriadaEm, &c.IniciadaEm, &c.ConcluidaEm, &ultimoErro,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select consulta")
	}
	if loteID != nil {
		c.LoteID = *loteID
	}
	if monitoramentoID != nil {
		c.MonitoramentoID = *monitoramentoID
	}
	if ultimoErro != nil {
		c.UltimoErro = *ultimoErro
	}
	return &c, nil
}

func (s *Storage) GravarResultado(ctx context.Context, res models.ConsultaResultado) error {
	var dados any
	if res.Dados != nil {
		b, err := json.Marshal(res.Dados)
		if err != nil {
			return errors.Wrap(err, "marshal dados")
		}
		dados = json.RawMessage(b)
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO consulta_resultados (
  consulta_id, sucesso, consultado_em, latencia_ms,
  dados, erro, erro_tipo, tem_alteracoes, novas_movimentacoes
)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8,$9)
`, res.ConsultaID, res.Sucesso, res.ConsultadoEm.UTC(), res.LatenciaMs,
		dados, res.Erro, res.ErroTipo, res.TemAlteracoes, len(res.NovasMovimentacoes))
	return errors.Wrap(err, "insert resultado")
}

// ListarResultados devolve o histórico de desfechos de um processo num
// tribunal, mais recente primeiro.
func (s *Storage) ListarResultados(ctx context.Context, processoID, tribunalID string, limit int) ([]models.ConsultaResultado, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
SELECT
  r.consulta_id, r.sucesso, r.consultado_em, r.latencia_ms,
  r.dados, r.erro, r.erro_tipo, r.tem_alteracoes
FROM consulta_resultados r
JOIN consultas c ON c.id = r.consulta_id
WHERE c.processo_id = $1 AND c.tribunal_id = $2
ORDER BY r.consultado_em DESC
LIMIT $3
`, processoID, tribunalID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select resultados")
	}
	defer rows.Close()

	var out []models.ConsultaResultado
	for rows.Next() {
		var r models.ConsultaResultado
		var dados []byte
		var erro, erroTipo *string
		if err := rows.Scan(
			&r.ConsultaID, &r.Sucesso, &r.ConsultadoEm, &r.LatenciaMs,
			&dados, &erro, &erroTipo, &r.TemAlteracoes,
		); err != nil {
			return nil, errors.Wrap(err, "scan resultado")
		}
		if len(dados) > 0 {
			var d models.ProcessoTribunalData
			if json.Unmarshal(dados, &d) == nil {
				r.Dados = &d
			}
		}
		if erro != nil {
			r.Erro = *erro
		}
		if erroTipo != nil {
			r.ErroTipo = *erroTipo
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// RegistrarMovimentacoes grava o snapshot do processo e devolve só as
// movimentações inéditas. O índice único decide o que é novo: a linha que
// o INSERT devolve foi inserida agora, a suprimida já existia.
func (s *Storage) RegistrarMovimentacoes(ctx context.Context, processoID, tribunalID string, movs []models.Movimentacao) ([]models.Movimentacao, error) {
	if len(movs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var novas []models.Movimentacao
	for _, m := range movs {
		var inserida string
		err := tx.QueryRow(ctx, `
INSERT INTO processo_movimentacoes (
  processo_id, tribunal_id, movimentacao_id, data, descricao, complemento, orgao, criado_em
)
VALUES ($1,$2,$3,$4,$5,$6,$7, now())
ON CONFLICT (processo_id, tribunal_id, movimentacao_id) DO NOTHING
RETURNING movimentacao_id
`, processoID, tribunalID, m.ID, m.Data.UTC(), m.Descricao, m.Complemento, m.Orgao).Scan(&inserida)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, errors.Wrap(err, "insert movimentação")
		}
		novas = append(novas, m)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return novas, nil
}

// ListarMovimentacoes devolve o snapshot consolidado, mais recente primeiro.
func (s *Storage) ListarMovimentacoes(ctx context.Context, processoID, tribunalID string, limit int) ([]models.Movimentacao, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	rows, err := s.db.Query(ctx, `
SELECT movimentacao_id, data, descricao, complemento, orgao
FROM processo_movimentacoes
WHERE processo_id = $1 AND tribunal_id = $2
ORDER BY data DESC
LIMIT $3
`, processoID, tribunalID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select movimentações")
	}
	defer rows.Close()

	var out []models.Movimentacao
	for rows.Next() {
		var m models.Movimentacao
		if err := rows.Scan(&m.ID, &m.Data, &m.Descricao, &m.Complemento, &m.Orgao); err != nil {
			return nil, errors.Wrap(err, "scan movimentação")
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) EstatisticasTribunal(ctx context.Context, tribunalID string) (models.TribunalStats, error) {
	st := models.TribunalStats{TribunalID: tribunalID}
	var ultima *time.Time
	err := s.db.QueryRow(ctx, `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE r.sucesso),
  COALESCE(AVG(r.latencia_ms), 0),
  MAX(r.consultado_em)
FROM consulta_resultados r
JOIN consultas c ON c.id = r.consulta_id
WHERE c.tribunal_id = $1
`, tribunalID).Scan(&st.TotalConsultas, &st.Sucessos, &st.LatenciaMediaMs, &ultima)
	if err != nil {
		return st, errors.Wrap(err, "select estatísticas")
	}
	st.Falhas = st.TotalConsultas - st.Sucessos
	if st.TotalConsultas > 0 {
		st.TaxaSucesso = float64(st.Sucessos) / float64(st.TotalConsultas)
	}
	st.UltimaConsulta = ultima
	return st, nil
}
