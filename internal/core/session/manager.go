package session

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"harvester/internal/logger"

	"github.com/playwright-community/playwright-go"
)

// initScript runs before any page script and masks the signals headless
// Chromium leaks: the webdriver flag, an empty plugin list, missing chrome
// runtime, and implausible hardware values.
const initScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = window.chrome || {
    runtime: { onConnect: undefined, onMessage: undefined },
    loadTimes: function() { return { connectionInfo: 'http/1.1', navigationType: 'Other', npnNegotiatedProtocol: 'unknown' }; }
};
Object.defineProperty(navigator, 'plugins', {
    get: () => [
        { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format', length: 1 },
        { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '', length: 1 },
        { name: 'Native Client', filename: 'internal-nacl-plugin', description: '', length: 2 }
    ],
});
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 4 });
if (navigator.permissions && navigator.permissions.query) {
    const originalQuery = navigator.permissions.query.bind(navigator.permissions);
    navigator.permissions.query = (parameters) => (
        parameters.name === 'notifications'
            ? Promise.resolve({ state: 'granted' })
            : originalQuery(parameters)
    );
}
`

// Session is the single-owner handle around one browser context. It holds
// exactly one live page; queries within a run share it sequentially so the
// fingerprint stays consistent.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
	page    playwright.Page
	Profile HeaderProfile
}

func (s *Session) Page() playwright.Page { return s.page }

// Close releases the page, context, browser and driver. Safe to call on a
// partially-initialized session.
func (s *Session) Close() {
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		_ = s.pw.Stop()
	}
}

type Manager struct {
	log *logger.Logger
}

func NewManager() *Manager {
	return &Manager{log: logger.New("SessionManager")}
}

// Initialize launches one stealth-configured headless browser and returns a
// ready Session. Launch failure is fatal to the run: the caller must report
// and exit, not retry.
func (m *Manager) Initialize(ctx context.Context, strategy HeaderStrategy) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright run: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
			"--disable-features=VizDisplayCompositor",
			"--no-first-run",
			"--no-default-browser-check",
			"--disable-default-apps",
			"--disable-extensions",
			"--disable-background-networking",
			"--disable-client-side-phishing-detection",
			"--window-size=1920,1080",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("browser launch: %w", err)
	}

	profile := GetHeaderProfile(strategy)
	m.log.LogDebugf("Session header profile: %s", profile.UserAgent)

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:        playwright.String(profile.UserAgent),
		ExtraHttpHeaders: profile.Headers(),
		Viewport:         &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("browser context: %w", err)
	}

	if err := browserCtx.AddInitScript(playwright.Script{Content: playwright.String(initScript)}); err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("init script: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}

	m.log.LogInfo("Stealth session initialized")
	return &Session{pw: pw, browser: browser, ctx: browserCtx, page: page, Profile: profile}, nil
}

// WarmUp accumulates organic-looking history before the target site is
// touched: a neutral search engine, one benign query, then a couple of
// high-trust domains. Failures here are logged and swallowed; warm-up is
// best-effort.
func (m *Manager) WarmUp(ctx context.Context, sess *Session) {
	page := sess.Page()

	m.log.LogInfo("Warm-up: visiting search engine")
	if _, err := page.Goto("https://www.google.com", playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		m.log.LogWarnf("warm-up search engine visit failed: %v", err)
		return
	}
	SimulateReading(page)

	if ctx.Err() != nil {
		return
	}

	m.log.LogInfo("Warm-up: issuing benign query")
	if err := page.Type(`textarea[name="q"], input[name="q"]`, "software jobs", playwright.PageTypeOptions{
		Delay: playwright.Float(150),
	}); err != nil {
		m.log.LogWarnf("warm-up query typing failed: %v", err)
	} else {
		RandomDelay(800, 1500)
		if err := page.Keyboard().Press("Enter"); err == nil {
			_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
				State:   playwright.LoadStateDomcontentloaded,
				Timeout: playwright.Float(15000),
			})
			SimulateReading(page)
		}
	}

	for _, site := range []string{"https://stackoverflow.com", "https://github.com"} {
		if ctx.Err() != nil {
			return
		}
		if _, err := page.Goto(site, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(20000),
		}); err != nil {
			m.log.LogWarnf("warm-up skipping %s: %v", site, err)
			continue
		}
		SimulateReading(page)
	}

	m.log.LogInfo("Warm-up completed")
}

// RandomDelay sleeps a uniformly random duration between min and max
// milliseconds.
func RandomDelay(minMs, maxMs int) {
	if maxMs <= minMs {
		time.Sleep(time.Duration(minMs) * time.Millisecond)
		return
	}
	d := rand.Intn(maxMs-minMs+1) + minMs
	time.Sleep(time.Duration(d) * time.Millisecond)
}
