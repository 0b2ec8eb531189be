package scraping

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	padraoDataBR  = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})(?:\s+(?:às\s+)?(\d{2}):(\d{2}))?`)
	padraoCPF     = regexp.MustCompile(`\d{3}\.?\d{3}\.?\d{3}-?\d{2}`)
	padraoCNPJ    = regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`)
	padraoMoeda   = regexp.MustCompile(`R?\$?\s*([\d.]+,\d{2})`)
)

// normalizarData converte "dd/mm/yyyy" para ISO "yyyy-mm-dd". Entrada que não
// casa com o padrão volta intacta (extração incompleta é não-fatal).
func normalizarData(s string) string {
	m := padraoDataBR.FindStringSubmatch(s)
	if m == nil {
		return strings.TrimSpace(s)
	}
	return m[3] + "-" + m[2] + "-" + m[1]
}

// ParseDataBR interpreta datas brasileiras com hora opcional
// ("02/07/2024", "02/07/2024 14:30", "02/07/2024 às 14:30").
func ParseDataBR(s string) (time.Time, bool) {
	m := padraoDataBR.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	dia, _ := strconv.Atoi(m[1])
	mes, _ := strconv.Atoi(m[2])
	ano, _ := strconv.Atoi(m[3])
	hora, min := 0, 0
	if m[4] != "" {
		hora, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
	}
	if mes < 1 || mes > 12 || dia < 1 || dia > 31 {
		return time.Time{}, false
	}
	return time.Date(ano, time.Month(mes), dia, hora, min, 0, 0, time.UTC), true
}

// NormalizarMoeda converte "R$ 1.234,56" para 1234.56.
func NormalizarMoeda(s string) (float64, bool) {
	m := padraoMoeda.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	limpo := strings.ReplaceAll(m[1], ".", "")
	limpo = strings.ReplaceAll(limpo, ",", ".")
	v, err := strconv.ParseFloat(limpo, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ExtrairCPFCNPJ acha o primeiro identificador com cara de CPF ou CNPJ em
// texto livre. CNPJ é testado primeiro por ser o padrão mais longo.
func ExtrairCPFCNPJ(s string) string {
	if m := padraoCNPJ.FindString(s); m != "" {
		return m
	}
	return padraoCPF.FindString(s)
}

// LimparTexto colapsa espaços e quebras de linha de células de tabela.
func LimparTexto(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
