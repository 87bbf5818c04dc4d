package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"PriceScanner/internal/domain"
)

// Renderer turns a page URL into HTML ready for goquery.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (io.ReadCloser, error)
}

// HTTPRenderer fetches static HTML with a plain GET.
type HTTPRenderer struct {
	client    *http.Client
	userAgent string
}

// NewHTTPRenderer wires an HTTP client; a nil client gets a 15s timeout.
func NewHTTPRenderer(client *http.Client, userAgent string) *HTTPRenderer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPRenderer{client: client, userAgent: userAgent}
}

// Render downloads the page body.
func (h *HTTPRenderer) Render(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrConfiguration, err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request page: %w", domain.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: page returned %s", domain.ErrTransport, resp.Status)
	}

	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxBodyBytes), resp.Body}, nil
}

// ChromeRenderer loads the page in headless Chrome so client-side
// rendered product grids are present in the DOM.
type ChromeRenderer struct {
	execPath  string
	userAgent string
	settle    time.Duration
}

// NewChromeRenderer locates a browser binary unless one is given.
func NewChromeRenderer(execPath, userAgent string) *ChromeRenderer {
	if execPath == "" {
		execPath = findChromeBinary()
	}
	return &ChromeRenderer{execPath: execPath, userAgent: userAgent, settle: 2 * time.Second}
}

// Render navigates to pageURL and returns the resulting outer HTML.
func (c *ChromeRenderer) Render(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: render page: %w", domain.ErrTransport, err)
	}

	return io.NopCloser(strings.NewReader(html)), nil
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}
