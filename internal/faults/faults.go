// Package faults define a taxonomia de erros compartilhada entre transporte,
// adapters, engine de scraping e dispatcher. O contrato voltado à UI nunca
// recebe exceções cruas: o dispatcher converte Fault em ConsultaResultado
// com flag de sucesso e tipo de erro.
package faults

import "fmt"

type Kind string

const (
	SistemaNaoConfigurado  Kind = "SISTEMA_NAO_CONFIGURADO"
	SistemaInativo         Kind = "SISTEMA_INATIVO"
	NumeroProcessoInvalido Kind = "NUMERO_PROCESSO_INVALIDO"
	OperacaoNaoSuportada   Kind = "OPERACAO_NAO_SUPORTADA"

	// TransporteTimeout e TransporteHTTP só aparecem depois de esgotadas
	// as tentativas internas de retry.
	TransporteTimeout Kind = "TRANSPORTE_TIMEOUT"
	TransporteHTTP    Kind = "TRANSPORTE_HTTP"

	// NaoEncontrado: o próprio alvo reportou "sem resultados".
	NaoEncontrado Kind = "NAO_ENCONTRADO"

	// CapacidadeIndisponivel: CAPTCHA/certificado exigido mas não disponível
	// neste contexto de execução.
	CapacidadeIndisponivel Kind = "CAPACIDADE_INDISPONIVEL"

	// ExtracaoIncompleta é não-fatal: campo não extraído fica vazio.
	ExtracaoIncompleta Kind = "EXTRACAO_INCOMPLETA"
)

type Fault struct {
	kind Kind
	msg  string
	err  error
}

func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Wrap(err error, kind Kind, format string, args ...any) *Fault {
	return &Fault{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func (f *Fault) Error() string {
	if f.err != nil {
		return f.msg + ": " + f.err.Error()
	}
	return f.msg
}

func (f *Fault) Unwrap() error { return f.err }

func (f *Fault) Kind() Kind { return f.kind }

// KindOf devolve o Kind do erro, descendo a cadeia de wraps.
// Erros fora da taxonomia viram TransporteHTTP (o tipo mais genérico
// que o chamador pode receber de uma consulta).
func KindOf(err error) Kind {
	for err != nil {
		if f, ok := err.(*Fault); ok {
			return f.kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return TransporteHTTP
}

// IsKind testa se o erro (ou algum wrap dele) carrega o Kind dado.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if f, ok := err.(*Fault); ok && f.kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
