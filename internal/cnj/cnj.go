// Package cnj valida, formata e decompõe números únicos de processo no
// padrão CNJ (Resolução 65/2008): NNNNNNN-DD.AAAA.J.TR.OOOO.
package cnj

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	padraoFormatado = regexp.MustCompile(`^\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}$`)
	naoDigito       = regexp.MustCompile(`\D`)
)

// Segmentos são os campos posicionais do número CNJ, obtidos por fatiamento
// de largura fixa dos 20 dígitos.
type Segmentos struct {
	Sequencial string // 7 dígitos
	Digito     string // 2 dígitos verificadores
	Ano        string // 4 dígitos
	Segmento   string // 1 dígito (ramo da justiça)
	Tribunal   string // 2 dígitos
	Origem     string // 4 dígitos (unidade de origem)
}

// ValidarNumeroProcesso aceita somente o formato canônico
// NNNNNNN-DD.AAAA.J.TR.OOOO.
func ValidarNumeroProcesso(numero string) bool {
	return padraoFormatado.MatchString(numero)
}

// SomenteDigitos remove tudo que não for dígito.
func SomenteDigitos(numero string) string {
	return naoDigito.ReplaceAllString(numero, "")
}

// FormatarNumeroProcesso converte 20 dígitos crus (com ou sem pontuação)
// para o formato canônico. Idempotente: formatar um número já formatado
// devolve o mesmo valor.
func FormatarNumeroProcesso(numero string) (string, error) {
	d := SomenteDigitos(numero)
	if len(d) != 20 {
		return "", fmt.Errorf("número de processo deve ter 20 dígitos, veio %d", len(d))
	}
	return fmt.Sprintf("%s-%s.%s.%s.%s.%s",
		d[0:7], d[7:9], d[9:13], d[13:14], d[14:16], d[16:20]), nil
}

// Decompor fatia o número (formatado ou cru) nos segmentos posicionais.
func Decompor(numero string) (Segmentos, error) {
	d := SomenteDigitos(numero)
	if len(d) != 20 {
		return Segmentos{}, fmt.Errorf("número de processo deve ter 20 dígitos, veio %d", len(d))
	}
	return Segmentos{
		Sequencial: d[0:7],
		Digito:     d[7:9],
		Ano:        d[9:13],
		Segmento:   d[13:14],
		Tribunal:   d[14:16],
		Origem:     d[16:20],
	}, nil
}

// TribunalDoNumero devolve "J.TR" (segmento + código do tribunal), útil para
// conferir se o número pertence ao sistema consultado.
func TribunalDoNumero(numero string) (string, error) {
	seg, err := Decompor(numero)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{seg.Segmento, seg.Tribunal}, "."), nil
}
