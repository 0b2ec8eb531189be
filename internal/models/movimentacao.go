package models

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"time"
)

// NovaMovimentacao monta um andamento com ID sintético derivado de
// (data, descrição). O ID é estável entre consultas e serve de chave de
// deduplicação.
func NovaMovimentacao(data time.Time, descricao string) Movimentacao {
	return Movimentacao{
		ID:        MovimentacaoID(data, descricao),
		Data:      data,
		Descricao: descricao,
	}
}

func MovimentacaoID(data time.Time, descricao string) string {
	h := sha1.Sum([]byte(data.UTC().Format(time.RFC3339) + "|" + descricao))
	return hex.EncodeToString(h[:8])
}

// OrdenarMovimentacoes devolve a lista deduplicada por ID e ordenada da mais
// recente para a mais antiga. Todo adapter passa por aqui antes de devolver
// o registro canônico.
func OrdenarMovimentacoes(movs []Movimentacao) []Movimentacao {
	seen := make(map[string]struct{}, len(movs))
	out := make([]Movimentacao, 0, len(movs))
	for _, m := range movs {
		if m.ID == "" {
			m.ID = MovimentacaoID(m.Data, m.Descricao)
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Data.After(out[j].Data)
	})
	return out
}
