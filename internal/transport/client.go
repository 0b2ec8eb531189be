// Package transport implementa o cliente HTTP(+browser) genérico usado pelos
// adapters de tribunal: fila FIFO com intervalo mínimo entre despachos, retry
// com backoff exponencial, cookies persistentes por instância e sessão de
// browser headless com liberação garantida.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "JusTrack/1.0 (consulta processual)"

type Options struct {
	// MinRequestGap é o intervalo mínimo entre dois despachos deste cliente,
	// derivado do rate-limit (req/min) do sistema externo.
	MinRequestGap time.Duration
	// Timeout por requisição, configurado por sistema externo.
	Timeout time.Duration

	MaxTentativas int           // default 3
	BackoffBase   time.Duration // delay = base × 2^(tentativa-1)

	UserAgent string
}

// RequestSpec descreve uma requisição. Exatamente um de Form/Body pode ser
// preenchido; a decodificação (HTML/XML/JSON) é escolhida pelo chamador na
// Response.
type RequestSpec struct {
	Method string
	URL    string
	Header http.Header

	Form url.Values // corpo application/x-www-form-urlencoded
	Body []byte     // corpo cru (SOAP, JSON)
	ContentType string
}

type Client struct {
	httpc   *http.Client
	limiter *rate.Limiter
	opts    Options
	browser Browser

	// mu serializa a fila: requisições ao mesmo sistema nunca se intercalam,
	// mesmo com chamadores concorrentes.
	mu sync.Mutex

	sleep func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Client {
	if opts.MaxTentativas <= 0 {
		opts.MaxTentativas = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	jar, _ := cookiejar.New(nil)

	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.MinRequestGap > 0 {
		lim = rate.NewLimiter(rate.Every(opts.MinRequestGap), 1)
	}

	return &Client{
		httpc: &http.Client{
			Jar: jar,
			// Timeout fica por tentativa, via contexto; o client não corta
			// por conta própria.
		},
		limiter: lim,
		opts:    opts,
		sleep:   sleepCtx,
	}
}

// WithBrowser injeta a capacidade de renderização headless. Sem ela,
// Scrape devolve CapacidadeIndisponivel.
func (c *Client) WithBrowser(b Browser) *Client {
	c.browser = b
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do envia a requisição respeitando a fila e o intervalo mínimo, com retry
// exponencial. Só devolve erro de transporte depois de esgotar as tentativas.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for tentativa := 1; tentativa <= c.opts.MaxTentativas; tentativa++ {
		if tentativa > 1 {
			delay := c.opts.BackoffBase * (1 << (tentativa - 2))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, faults.Wrap(err, faults.TransporteTimeout, "cancelado durante backoff")
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, faults.Wrap(err, faults.TransporteTimeout, "cancelado na fila de despacho")
		}

		resp, err := c.dispatch(ctx, spec)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Timeout estoura imediatamente como tal, sem mascarar em HTTP genérico.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, faults.Wrap(err, faults.TransporteTimeout, "timeout na consulta externa")
		}
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, faults.Wrap(lastErr, faults.TransporteTimeout, "timeout após %d tentativas", c.opts.MaxTentativas)
	}
	return nil, faults.Wrap(lastErr, faults.TransporteHTTP, "transporte falhou após %d tentativas", c.opts.MaxTentativas)
}

func (c *Client) dispatch(ctx context.Context, spec RequestSpec) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var body io.Reader
	contentType := spec.ContentType
	switch {
	case spec.Form != nil:
		body = strings.NewReader(spec.Form.Encode())
		if contentType == "" {
			contentType = "application/x-www-form-urlencoded"
		}
	case spec.Body != nil:
		body = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(reqCtx, spec.Method, spec.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	for k, vs := range spec.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	// 5xx e 429 são transientes: tratamos como falha para acionar retry.
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Errorf("http %d do sistema externo", resp.StatusCode)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       b,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// Get é açúcar para requisições simples.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodGet, URL: rawURL})
}

// PostForm envia um formulário codificado.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPost, URL: rawURL, Form: form})
}

// Scrape abre uma sessão de browser headless, executa as ações e devolve o
// HTML renderizado. A sessão é sempre fechada antes do retorno, com erro ou
// sem.
func (c *Client) Scrape(ctx context.Context, rawURL string, actions func(ctx context.Context, s Session) error) (string, error) {
	if c.browser == nil {
		return "", faults.New(faults.CapacidadeIndisponivel, "browser headless não disponível neste contexto")
	}

	scrapeCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	s, err := c.browser.NewSession(scrapeCtx)
	if err != nil {
		return "", errors.Wrap(err, "abrir sessão do browser")
	}
	defer s.Close()

	if err := s.Navigate(scrapeCtx, rawURL); err != nil {
		return "", errors.Wrap(err, "navegar")
	}
	if actions != nil {
		if err := actions(scrapeCtx, s); err != nil {
			return "", err
		}
	}
	return s.HTML(scrapeCtx)
}
