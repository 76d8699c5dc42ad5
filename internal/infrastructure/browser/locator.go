package browser

import (
	"fmt"
	"strings"
)

// findFirst walks an ordered list of locator strategies and returns the
// first element any of them resolves. Selector flakiness is the norm on
// the live UI (markup changes, async rendering), so individual lookup
// failures are expected; only the exhaustion of the whole list is an
// error. The lookup function is injected so tests can run fake locators.
func findFirst[T any](lookup func(selector string) (T, error), selectors []string) (T, string, error) {
	var zero T
	var lastErr error

	for _, sel := range selectors {
		el, err := lookup(sel)
		if err != nil {
			lastErr = err
			continue
		}
		return el, sel, nil
	}

	if lastErr == nil {
		return zero, "", fmt.Errorf("no selectors provided")
	}
	return zero, "", fmt.Errorf("no selector matched (%s): %w",
		strings.Join(selectors, ", "), lastErr)
}
