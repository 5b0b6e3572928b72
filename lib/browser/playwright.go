package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// The portals are touchy about headless defaults, so sessions pin a
// desktop viewport and a stable Chrome user agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36" +
	" (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type Options struct {
	Headless bool
}

// Session owns a playwright runtime, a browser, and one page. Close it
// when done; the page is invalid afterwards.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *playwrightPage
}

func Launch(options Options) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(options.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 800,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	page, err := browserCtx.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	return &Session{
		pw:      pw,
		browser: browser,
		context: browserCtx,
		page:    &playwrightPage{page: page},
	}, nil
}

func (s *Session) Page() Page {
	return s.page
}

func (s *Session) Close() error {
	err := s.browser.Close()
	stopErr := s.pw.Stop()
	if err != nil {
		return err
	}
	return stopErr
}

type playwrightPage struct {
	page playwright.Page
}

var _ Page = (*playwrightPage)(nil)

// mapErr translates playwright failures into the package's sentinels so
// callers can branch with errors.Is.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	return mapErr(err)
}

func (p *playwrightPage) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr(p.page.Fill(selector, value))
}

func (p *playwrightPage) SelectOption(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Locator(selector).SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	return mapErr(err)
}

func (p *playwrightPage) Check(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr(p.page.Check(selector))
}

func (p *playwrightPage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr(p.page.Click(selector))
}

func (p *playwrightPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return mapErr(err)
}

func (p *playwrightPage) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return mapErr(err)
}

func (p *playwrightPage) InnerText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	locator := p.page.Locator(selector)
	count, err := locator.Count()
	if err != nil {
		return "", mapErr(err)
	}
	if count == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoSuchElement, selector)
	}
	text, err := locator.First().InnerText()
	return text, mapErr(err)
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := p.page.Content()
	return content, mapErr(err)
}

func (p *playwrightPage) PDF(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := p.page.PDF(playwright.PagePdfOptions{
		Format: playwright.String("Letter"),
	})
	return data, mapErr(err)
}

func (p *playwrightPage) Get(ctx context.Context, url string) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	response, err := p.page.Context().Request().Get(url)
	if err != nil {
		return 0, nil, mapErr(err)
	}
	body, err := response.Body()
	if err != nil {
		return response.Status(), nil, mapErr(err)
	}
	return response.Status(), body, nil
}
