package transport

import "context"

// Browser é a capacidade injetada de renderização headless. Definida estreita
// de propósito: pode ser backed por chromedp, por um microservice dedicado ou
// por um fake em testes.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session é uma sessão efêmera de browser: adquirida por chamada de scrape,
// nunca compartilhada, sempre fechada pelo chamador.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	WaitVisible(ctx context.Context, selector string) error
	// CaptchaImage captura a imagem do elemento (base64) para o solver.
	CaptchaImage(ctx context.Context, selector string) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}
