// Package pages holds the page objects the UI scenarios drive. Every action
// waits explicitly for its element and returns a coded error instead of
// swallowing failures; callers decide what to assert.
package pages

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/errs"
)

// BasePage carries the page handle, the explicit wait and a logger named after
// the concrete page object.
type BasePage struct {
	page playwright.Page
	wait time.Duration
	log  *zap.Logger
}

// NewBasePage returns a BasePage. A nil logger discards output.
func NewBasePage(page playwright.Page, wait time.Duration, log *zap.Logger) BasePage {
	if log == nil {
		log = zap.NewNop()
	}
	return BasePage{page: page, wait: wait, log: log}
}

// Page returns the underlying page.
func (b *BasePage) Page() playwright.Page { return b.page }

// CurrentURL returns the page's current URL.
func (b *BasePage) CurrentURL() string { return b.page.URL() }

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// find returns the first match, mirroring find_element semantics and
// avoiding strict-mode errors when a locator matches several nodes.
func (b *BasePage) find(selector string) playwright.Locator {
	return b.page.Locator(selector).First()
}

func (b *BasePage) waitFor(selector string, state *playwright.WaitForSelectorState, timeout time.Duration) (playwright.Locator, error) {
	loc := b.find(selector)
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{State: state, Timeout: ms(timeout)}); err != nil {
		return nil, classify(err, "wait for "+selector)
	}
	return loc, nil
}

// visible waits until selector is visible within the explicit wait.
func (b *BasePage) visible(selector string) (playwright.Locator, error) {
	return b.waitFor(selector, playwright.WaitForSelectorStateVisible, b.wait)
}

// present waits until selector is attached to the DOM within the explicit wait.
func (b *BasePage) present(selector string) (playwright.Locator, error) {
	return b.waitFor(selector, playwright.WaitForSelectorStateAttached, b.wait)
}

// click waits for selector to be visible and clicks it.
func (b *BasePage) click(selector string) error {
	return b.clickWithin(selector, b.wait)
}

func (b *BasePage) clickWithin(selector string, timeout time.Duration) error {
	loc, err := b.waitFor(selector, playwright.WaitForSelectorStateVisible, timeout)
	if err != nil {
		return err
	}
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: ms(timeout)}); err != nil {
		return classify(err, "click "+selector)
	}
	return nil
}

func (b *BasePage) text(selector string) (string, error) {
	loc, err := b.visible(selector)
	if err != nil {
		return "", err
	}
	text, err := loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: ms(b.wait)})
	if err != nil {
		return "", classify(err, "read text of "+selector)
	}
	return text, nil
}

// classify maps a Playwright error to the suite's error codes.
func classify(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Wrap(errs.Timeout, action, err)
	}
	return errs.Wrap(errs.ElementNotFound, action, err)
}

// xpath prefixes an XPath expression for Playwright.
func xpath(format string, args ...any) string {
	return "xpath=" + fmt.Sprintf(format, args...)
}
