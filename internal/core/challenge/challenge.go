package challenge

import (
	"context"
	"strings"
	"time"

	"harvester/internal/core/session"
	"harvester/internal/logger"

	"github.com/playwright-community/playwright-go"
)

// State classifies what the edge security layer served instead of (or before)
// real content. Derived fresh on every navigation, never persisted.
type State string

const (
	StateClear      State = "clear"
	StateChallenged State = "challenged"
	// StateBlocked is terminal for the current query: no amount of waiting
	// clears an explicit block page.
	StateBlocked State = "blocked"
)

// Page is the minimal surface detection needs. playwright.Page satisfies it;
// tests can provide a fake.
type Page interface {
	Title() (string, error)
	Content() (string, error)
}

var challengeTitleSignatures = []string{
	"just a moment",
	"attention required",
	"checking your browser",
}

var challengeContentSignatures = []string{
	"checking your browser",
	"cloudflare",
	"ray id",
	"please wait while we check your browser",
}

var blockedTitleSignatures = []string{
	"verification",
	"challenge",
	"blocked",
}

var blockedContentSignatures = []string{
	"verify you are human",
	"security check",
	"unusual traffic",
}

type Handler struct {
	log *logger.Logger

	// tick is the polling interval for clearance waits. Overridable in tests.
	tick time.Duration
}

func NewHandler() *Handler {
	return &Handler{log: logger.New("ChallengeHandler"), tick: time.Second}
}

// Detect inspects the current page title and rendered content for known
// interstitial signatures.
func (h *Handler) Detect(p Page) State {
	title, err := p.Title()
	if err != nil {
		return StateClear
	}
	content, err := p.Content()
	if err != nil {
		content = ""
	}
	return Classify(title, content)
}

// Classify applies the signature tables to already-captured title and content.
func Classify(title, content string) State {
	t := strings.ToLower(title)
	c := strings.ToLower(content)

	for _, sig := range blockedTitleSignatures {
		if strings.Contains(t, sig) {
			return StateBlocked
		}
	}
	for _, sig := range blockedContentSignatures {
		if strings.Contains(c, sig) {
			return StateBlocked
		}
	}
	for _, sig := range challengeTitleSignatures {
		if strings.Contains(t, sig) {
			return StateChallenged
		}
	}
	for _, sig := range challengeContentSignatures {
		if strings.Contains(c, sig) {
			return StateChallenged
		}
	}
	return StateClear
}

// AwaitClearance polls the page once per tick until the challenge clears, the
// budget runs out, or the context is cancelled. Every fifth tick it makes a
// light mouse movement so the remote side sees a non-idle client. Returns the
// final state; StateClear means the caller may proceed.
func (h *Handler) AwaitClearance(ctx context.Context, p Page, maxWait time.Duration) State {
	deadline := time.Now().Add(maxWait)
	state := h.Detect(p)
	ticks := 0

	for state == StateChallenged && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return state
		case <-time.After(h.tick):
		}
		ticks++

		if ticks%5 == 0 {
			h.log.LogDebugf("Still waiting on challenge (%d ticks)", ticks)
			if pg, ok := p.(playwright.Page); ok {
				session.MouseJiggle(pg)
			}
		}
		state = h.Detect(p)
	}

	if state == StateClear {
		h.log.LogInfof("Challenge cleared after %d ticks", ticks)
	} else {
		h.log.LogWarnf("Challenge not cleared within %s (state=%s)", maxWait, state)
	}
	return state
}
