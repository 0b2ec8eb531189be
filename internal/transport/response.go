package transport

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// Response é o corpo já lido; a decodificação é explícita pelo chamador.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string
}

// HTML decodifica o corpo como documento consultável por seletores CSS.
func (r *Response) HTML() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	return doc, nil
}

// JSON decodifica o corpo em v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "parse json")
	}
	return nil
}

// XML decodifica o corpo em v.
func (r *Response) XML(v any) error {
	if err := xml.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "parse xml")
	}
	return nil
}
