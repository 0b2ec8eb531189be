// Package registry mantém a tabela de sistemas externos integrados e o
// client de cada um. Cada tribunal tem seu próprio transport.Client, com
// fila, cookies e relógio de rate-limit isolados: tráfego intenso contra
// um portal nunca atrasa consultas a outro.
package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/integrations/tribunal"
	"github.com/JusTrack/JusTrack/internal/integrations/tribunal/esajhttp"
	"github.com/JusTrack/JusTrack/internal/integrations/tribunal/fake"
	"github.com/JusTrack/JusTrack/internal/integrations/tribunal/pjehttp"
	"github.com/JusTrack/JusTrack/internal/integrations/tribunal/restjson"
	"github.com/JusTrack/JusTrack/internal/integrations/tribunal/scraperule"
	"github.com/JusTrack/JusTrack/internal/integrations/tribunal/soapws"
	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/scraping"
	"github.com/JusTrack/JusTrack/internal/transport"
)

type Options struct {
	// Browser habilita os adapters que dependem de renderização headless.
	// Nulo, consultas com captcha devolvem CAPACIDADE_INDISPONIVEL.
	Browser transport.Browser
	// Solver resolve captchas; nulo, cai no resolvedor manual do engine.
	Solver scraping.CaptchaSolver
	// FakeMode troca todos os adapters pelo fake determinístico (dev/carga).
	FakeMode bool

	Logger *slog.Logger
}

type entrada struct {
	cfg    models.TribunalConfig
	client tribunal.Client
}

type Registry struct {
	mu       sync.RWMutex
	entradas map[string]*entrada

	rules  map[string]scraping.Rule
	engine *scraping.Engine
	opts   Options
	logger *slog.Logger
}

// New monta o registry já semeado com a tabela completa de tribunais.
func New(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Registry{
		entradas: make(map[string]*entrada),
		rules:    SeedRules(),
		engine:   scraping.NewEngine(opts.Solver),
		opts:     opts,
		logger:   opts.Logger.With("component", "registry"),
	}
	for _, cfg := range SeedConfigs() {
		r.registrar(cfg)
	}
	return r
}

// registrar instala (ou substitui) a entrada do tribunal, reconstruindo o
// transport e o adapter a partir do config. Chamado sob r.mu ou na montagem.
func (r *Registry) registrar(cfg models.TribunalConfig) {
	r.entradas[cfg.ID] = &entrada{cfg: cfg, client: r.montarClient(cfg)}
}

func (r *Registry) montarClient(cfg models.TribunalConfig) tribunal.Client {
	if r.opts.FakeMode {
		return fake.New()
	}

	limite := cfg.RateLimitPorMinuto
	rule, temRule := r.rules[cfg.ID]
	if temRule && rule.RateLimitPorMinuto > 0 {
		limite = rule.RateLimitPorMinuto
	}
	var gap time.Duration
	if limite > 0 {
		gap = time.Minute / time.Duration(limite)
	}

	tc := transport.New(transport.Options{
		MinRequestGap: gap,
		Timeout:       cfg.Timeout,
	})
	if r.opts.Browser != nil {
		tc = tc.WithBrowser(r.opts.Browser)
	}

	switch cfg.APIFamily {
	case models.APIFamilyESAJ:
		return esajhttp.New(tc)
	case models.APIFamilyPJE:
		return pjehttp.New(tc)
	case models.APIFamilySOAP:
		return soapws.New(tc)
	case models.APIFamilyREST:
		return restjson.New(tc)
	case models.APIFamilyScraping:
		if !temRule {
			r.logger.Warn("tribunal de scraping sem regra declarada", "tribunal", cfg.ID)
			return nil
		}
		return scraperule.New(tc, r.engine, rule)
	}
	r.logger.Warn("família de API desconhecida", "tribunal", cfg.ID, "familia", cfg.APIFamily)
	return nil
}

// Obter devolve o config do tribunal, se registrado.
func (r *Registry) Obter(id string) (models.TribunalConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entradas[id]
	if !ok {
		return models.TribunalConfig{}, false
	}
	return e.cfg, true
}

// Listar devolve todos os configs, ordenados por ID.
func (r *Registry) Listar() []models.TribunalConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.TribunalConfig, 0, len(r.entradas))
	for _, e := range r.entradas {
		out = append(out, e.cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AtualizarConfig é o único caminho de mutação da tabela: substitui a
// entrada e reconstrói transport e adapter com os novos parâmetros.
func (r *Registry) AtualizarConfig(cfg models.TribunalConfig) error {
	if cfg.ID == "" {
		return faults.New(faults.SistemaNaoConfigurado, "config sem identificador de tribunal")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrar(cfg)
	r.logger.Info("config de tribunal atualizado",
		"tribunal", cfg.ID, "ativo", cfg.Ativo, "rateLimit", cfg.RateLimitPorMinuto)
	return nil
}

// AtualizarRule instala/substitui a regra de scraping do tribunal e
// reconstrói o client correspondente, se houver.
func (r *Registry) AtualizarRule(rule scraping.Rule) error {
	if rule.TribunalID == "" {
		return faults.New(faults.SistemaNaoConfigurado, "regra sem identificador de tribunal")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.TribunalID] = rule
	if e, ok := r.entradas[rule.TribunalID]; ok {
		r.registrar(e.cfg)
	}
	return nil
}

// ClientPara resolve o adapter do tribunal, validando registro e atividade.
// Nenhuma chamada de rede acontece aqui.
func (r *Registry) ClientPara(id string) (tribunal.Client, models.TribunalConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entradas[id]
	if !ok {
		return nil, models.TribunalConfig{}, faults.New(faults.SistemaNaoConfigurado,
			"tribunal %s não registrado", id)
	}
	if !e.cfg.Ativo {
		return nil, e.cfg, faults.New(faults.SistemaInativo,
			"tribunal %s desativado para consultas", id)
	}
	if e.client == nil {
		return nil, e.cfg, faults.New(faults.SistemaNaoConfigurado,
			"tribunal %s sem adapter montado", id)
	}
	return e.client, e.cfg, nil
}
