package models

import "time"

// Tipos de parte num processo (normalizados entre tribunais).
const (
	ParteAutor    = "AUTOR"
	ParteReu      = "REU"
	ParteTerceiro = "TERCEIRO"
	ParteOutro    = "OUTRO"
)

// ProcessoTribunalData é a representação canônica de um processo,
// independente do tribunal/protocolo de origem.
type ProcessoTribunalData struct {
	NumeroProcesso string `json:"numeroProcesso"`
	Classe         string `json:"classe,omitempty"`
	Assunto        string `json:"assunto,omitempty"`
	DataAjuizamento *time.Time `json:"dataAjuizamento,omitempty"`

	Situacao   string `json:"situacao,omitempty"`
	OrgaoJulgador string `json:"orgaoJulgador,omitempty"`
	Magistrado string `json:"magistrado,omitempty"`
	ValorCausa *float64 `json:"valorCausa,omitempty"`

	Partes     []Parte       `json:"partes,omitempty"`
	Advogados  []Advogado    `json:"advogados,omitempty"`
	Movimentacoes []Movimentacao `json:"movimentacoes,omitempty"`
	Audiencias []Audiencia   `json:"audiencias,omitempty"`
	Documentos []DocumentoProcesso `json:"documentos,omitempty"`
	Recursos   []Recurso     `json:"recursos,omitempty"`
}

type Parte struct {
	Nome     string `json:"nome"`
	Tipo     string `json:"tipo"`
	Documento string `json:"documento,omitempty"` // CPF/CNPJ quando detectável
}

type Advogado struct {
	Nome string `json:"nome"`
	OAB  string `json:"oab,omitempty"`
	UF   string `json:"uf,omitempty"`
}

// Movimentacao é um andamento processual. ID é sintético (hash de data+descrição)
// e serve para deduplicação entre consultas.
type Movimentacao struct {
	ID        string    `json:"id"`
	Data      time.Time `json:"data"`
	Descricao string    `json:"descricao"`
	Complemento string  `json:"complemento,omitempty"`
	Orgao     string    `json:"orgao,omitempty"`
}

type Audiencia struct {
	Data  time.Time `json:"data"`
	Tipo  string    `json:"tipo,omitempty"`
	Local string    `json:"local,omitempty"`
	Situacao string `json:"situacao,omitempty"`
}

type DocumentoProcesso struct {
	Nome string    `json:"nome"`
	Tipo string    `json:"tipo,omitempty"`
	Data *time.Time `json:"data,omitempty"`
	URL  string    `json:"url,omitempty"`
}

type Recurso struct {
	Tipo     string    `json:"tipo"`
	Situacao string    `json:"situacao,omitempty"`
	Data     *time.Time `json:"data,omitempty"`
}
