// Package chromedpbrowser implementa transport.Browser sobre chromedp.
// Cada sessão é um contexto de aba próprio, descartado no Close.
package chromedpbrowser

import (
	"context"

	"github.com/JusTrack/JusTrack/internal/transport"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

type Browser struct {
	allocOpts []chromedp.ExecAllocatorOption
}

func New() *Browser {
	return &Browser{
		allocOpts: append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		),
	}
}

func (b *Browser) NewSession(ctx context.Context) (transport.Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Sobe o processo já aqui para que falha de ambiente apareça na
	// aquisição da sessão, não no meio do scrape.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, errors.Wrap(err, "iniciar chrome headless")
	}

	return &session{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}, nil
}

type session struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body"))
}

func (s *session) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector),
		chromedp.Clear(selector),
		chromedp.SendKeys(selector, value),
	)
}

func (s *session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector))
}

func (s *session) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector))
}

func (s *session) CaptchaImage(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.NodeVisible)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *session) run(ctx context.Context, actions ...chromedp.Action) error {
	// Respeita o deadline do chamador mesmo sendo outro contexto o dono da aba.
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(s.ctx, actions...) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return errors.Wrap(err, "chromedp")
	}
}

func (s *session) Close() error {
	s.cancel()
	return nil
}
