package render

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"vulnhub-crawler/pkg/models"
)

// ChromeOptions configures the headless browser.
type ChromeOptions struct {
	UserAgent string
	// ExecPath overrides Chrome discovery. Empty uses chromedp's lookup.
	ExecPath string
}

// ChromeBrowser drives a single headless Chrome process. Each session is a
// separate tab in that process.
type ChromeBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromeBrowser launches Chrome and waits until it accepts commands.
func NewChromeBrowser(ctx context.Context, opts ChromeOptions) (*ChromeBrowser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch chrome: %w: %w", models.ErrRender, err)
	}

	return &ChromeBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func (b *ChromeBrowser) NewSession(_ context.Context) (Session, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w: %w", models.ErrRender, err)
	}
	s := &chromeSession{tabCtx: tabCtx, cancel: cancel}
	s.doc = &chromeDocument{session: s}
	return s, nil
}

func (b *ChromeBrowser) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}

type chromeSession struct {
	tabCtx context.Context
	cancel context.CancelFunc
	doc    *chromeDocument
}

// run executes actions in the tab while honouring ctx's deadline and
// cancellation. Cancelling the derived context aborts the actions without
// closing the tab.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, navigateAndWaitIdle(url)); err != nil {
		return fmt.Errorf("navigate %s: %w: %w", url, models.ErrRender, err)
	}
	return nil
}

func (s *chromeSession) Document() Document {
	return s.doc
}

const fetchAssetJS = `(async (src) => {
	const response = await fetch(src);
	if (!response.ok) {
		throw new Error("HTTP " + response.status);
	}
	const blob = await response.blob();
	return await new Promise((resolve, reject) => {
		const reader = new FileReader();
		reader.onloadend = () => resolve(reader.result);
		reader.onerror = () => reject(reader.error);
		reader.readAsDataURL(blob);
	});
})(%s)`

// FetchAsset downloads url with the page's own fetch so cookies and
// referrer match what the page would send.
func (s *chromeSession) FetchAsset(ctx context.Context, url string) (Asset, error) {
	var dataURL string
	err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(fetchAssetJS, jsString(url)), &dataURL, awaitPromise))
	if err != nil {
		return Asset{}, fmt.Errorf("fetch asset %s: %w: %w", url, models.ErrAssetFetch, err)
	}

	asset, err := decodeDataURL(dataURL)
	if err != nil {
		return Asset{}, fmt.Errorf("fetch asset %s: %w: %w", url, models.ErrAssetFetch, err)
	}
	return asset, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// navigateAndWaitIdle navigates and then blocks until Chrome reports the
// networkIdle lifecycle event for the new document.
func navigateAndWaitIdle(url string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return err
		}

		idle := make(chan struct{})
		var once sync.Once
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Lifecycle events are delivered in order, so every networkIdle
		// after the new document's init belongs to this navigation.
		started := false
		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			e, ok := ev.(*page.EventLifecycleEvent)
			if !ok {
				return
			}
			switch e.Name {
			case "init":
				started = true
			case "networkIdle":
				if started {
					once.Do(func() { close(idle) })
				}
			}
		})

		if err := chromedp.Navigate(url).Do(ctx); err != nil {
			return err
		}

		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// chromeDocument runs fixed query scripts in the tab. Selectors are passed
// as JSON string literals, never spliced in raw.
type chromeDocument struct {
	session *chromeSession
}

const (
	selectTextJS = `(() => {
	const el = document.querySelector(%s);
	return el ? el.textContent.trim() : "";
})()`
	selectHrefJS = `(() => {
	const el = document.querySelector(%s);
	return el && el.href ? String(el.href) : "";
})()`
	countJS       = `document.querySelectorAll(%s).length`
	selectHrefsJS = `Array.from(document.querySelectorAll(%s)).map((c) => {
	const a = c.querySelector(%s);
	return a && a.href ? String(a.href) : "";
})`
)

func (d *chromeDocument) evaluate(ctx context.Context, script string, out interface{}) error {
	if err := d.session.run(ctx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluate: %w: %w", models.ErrRender, err)
	}
	return nil
}

func (d *chromeDocument) SelectText(ctx context.Context, selector string) (string, error) {
	var text string
	err := d.evaluate(ctx, fmt.Sprintf(selectTextJS, jsString(selector)), &text)
	return text, err
}

func (d *chromeDocument) SelectHref(ctx context.Context, selector string) (string, error) {
	var href string
	err := d.evaluate(ctx, fmt.Sprintf(selectHrefJS, jsString(selector)), &href)
	return href, err
}

func (d *chromeDocument) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := d.evaluate(ctx, fmt.Sprintf(countJS, jsString(selector)), &n)
	return n, err
}

func (d *chromeDocument) SelectHrefs(ctx context.Context, container, child string) ([]string, error) {
	var hrefs []string
	err := d.evaluate(ctx, fmt.Sprintf(selectHrefsJS, jsString(container), jsString(child)), &hrefs)
	if hrefs == nil {
		hrefs = []string{}
	}
	return hrefs, err
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
