// Package fetch - browser.go provides headless browser rendering for
// JavaScript-driven job boards.
package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// renderSettle is how long the page is given to run client-side rendering
// after the wait selector is ready.
const renderSettle = 3 * time.Second

// cookieWait bounds how long we look for a consent banner.
const cookieWait = 2 * time.Second

// cookieButtons matches consent banners seen on European job boards.
const cookieButtons = `#axeptio_btn_acceptAll, button[id*="accept"], button[class*="accept"]`

// WithBrowser renders a page in headless Chrome and returns the resulting HTML.
// waitSelector defaults to "body". Requires Chrome/Chromium on the host.
func WithBrowser(ctx context.Context, url string, timeout time.Duration, waitSelector string) (string, error) {
	if waitSelector == "" {
		waitSelector = "body"
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Banner may be absent.
			clickCtx, cancel := context.WithTimeout(ctx, cookieWait)
			defer cancel()
			_ = chromedp.Click(cookieButtons, chromedp.NodeVisible).Do(clickCtx)
			return nil
		}),
		// Trigger lazy-loaded result lists.
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(renderSettle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}
	return html, nil
}
