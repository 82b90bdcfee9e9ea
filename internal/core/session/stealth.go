package session

import (
	"math/rand"

	"github.com/playwright-community/playwright-go"
)

// MouseJiggle moves the mouse to a few random in-viewport coordinates to
// defeat idle-detection heuristics.
func MouseJiggle(page playwright.Page) {
	vp := page.ViewportSize()
	width, height := 1280, 800
	if vp.Width > 0 && vp.Height > 0 {
		width, height = vp.Width, vp.Height
	}
	for i := 0; i < 3; i++ {
		x := float64(rand.Intn(width))
		y := float64(rand.Intn(height))
		if err := page.Mouse().Move(x, y, playwright.MouseMoveOptions{
			Steps: playwright.Int(10 + rand.Intn(20)),
		}); err != nil {
			return
		}
		RandomDelay(100, 300)
	}
}

// SmoothScroll scrolls down the page in viewport-sized steps, then drifts
// back up a little, the way a person skims a results list.
func SmoothScroll(page playwright.Page) {
	steps := 3 + rand.Intn(5)
	for i := 0; i < steps; i++ {
		if _, err := page.Evaluate("window.scrollBy(0, window.innerHeight / 2)"); err != nil {
			return
		}
		RandomDelay(500, 1500)
	}
	_, _ = page.Evaluate("window.scrollBy(0, -200)")
}

// SimulateReading is the composite used between navigations: dwell, scroll,
// jiggle, dwell again. Errors are intentionally ignored; a failed gesture is
// never worth failing a query over.
func SimulateReading(page playwright.Page) {
	RandomDelay(1000, 3000)
	SmoothScroll(page)
	MouseJiggle(page)
	RandomDelay(1500, 4000)
}
