// Package browsertest provides a scripted, in-memory Page for scraper
// tests. A FakePage serves HTML snapshots keyed by URL and lets tests
// hook clicks and navigations to emulate the portals' form flows.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"capitolwatch-backend/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

type Response struct {
	Status int
	Body   []byte
}

// FakePage implements browser.Page against a map of canned documents.
// Every mutating call is appended to Calls ("fill:#lastName=Pelosi")
// so tests can assert on interaction order.
type FakePage struct {
	// Documents maps URL to the HTML served at that location.
	Documents map[string]string
	// Location is the current URL. Navigate sets it; ClickFunc may too.
	Location string

	// ClickFunc, when set, runs instead of the default no-op click.
	ClickFunc func(selector string) error
	// NavigateFunc, when set, runs before the location change and can
	// veto it by returning an error.
	NavigateFunc func(url string) error
	// Responses backs Get, keyed by URL.
	Responses map[string]Response
	// PDFData is returned by PDF.
	PDFData []byte

	Calls []string
}

var _ browser.Page = (*FakePage)(nil)

func (p *FakePage) record(format string, args ...any) {
	p.Calls = append(p.Calls, fmt.Sprintf(format, args...))
}

// CallCount returns how many recorded calls have the given prefix.
func (p *FakePage) CallCount(prefix string) int {
	count := 0
	for _, call := range p.Calls {
		if strings.HasPrefix(call, prefix) {
			count++
		}
	}
	return count
}

func (p *FakePage) document() (*goquery.Document, error) {
	content, ok := p.Documents[p.Location]
	if !ok {
		return nil, fmt.Errorf("no document for %q", p.Location)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(content))
}

func (p *FakePage) URL() string {
	return p.Location
}

func (p *FakePage) Navigate(_ context.Context, url string) error {
	p.record("navigate:%s", url)
	if p.NavigateFunc != nil {
		if err := p.NavigateFunc(url); err != nil {
			return err
		}
	}
	p.Location = url
	return nil
}

func (p *FakePage) Fill(_ context.Context, selector, value string) error {
	p.record("fill:%s=%s", selector, value)
	return nil
}

func (p *FakePage) SelectOption(_ context.Context, selector, value string) error {
	p.record("select:%s=%s", selector, value)
	return nil
}

func (p *FakePage) Check(_ context.Context, selector string) error {
	p.record("check:%s", selector)
	return nil
}

func (p *FakePage) Click(_ context.Context, selector string) error {
	p.record("click:%s", selector)
	if p.ClickFunc != nil {
		return p.ClickFunc(selector)
	}
	return nil
}

func (p *FakePage) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	p.record("waitvisible:%s", selector)
	doc, err := p.document()
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: waiting for %s", browser.ErrTimeout, selector)
	}
	return nil
}

func (p *FakePage) WaitHidden(_ context.Context, selector string, _ time.Duration) error {
	p.record("waithidden:%s", selector)
	doc, err := p.document()
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() > 0 {
		return fmt.Errorf("%w: waiting for %s to hide", browser.ErrTimeout, selector)
	}
	return nil
}

func (p *FakePage) InnerText(_ context.Context, selector string) (string, error) {
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s", browser.ErrNoSuchElement, selector)
	}
	return sel.First().Text(), nil
}

func (p *FakePage) Content(_ context.Context) (string, error) {
	content, ok := p.Documents[p.Location]
	if !ok {
		return "", fmt.Errorf("no document for %q", p.Location)
	}
	return content, nil
}

func (p *FakePage) PDF(_ context.Context) ([]byte, error) {
	p.record("pdf:%s", p.Location)
	if p.PDFData == nil {
		return []byte("%PDF-1.4 fake"), nil
	}
	return p.PDFData, nil
}

func (p *FakePage) Get(_ context.Context, url string) (int, []byte, error) {
	p.record("get:%s", url)
	response, ok := p.Responses[url]
	if !ok {
		return 404, nil, nil
	}
	return response.Status, response.Body, nil
}
