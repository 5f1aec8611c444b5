package browser

import (
	"encoding/base64"
	"fmt"
)

// Locator is a selector resolvable against the page it was rendered from.
type Locator string

// Locators maps element ids of one rendering to their locators.
type Locators map[int]Locator

// LocatorForID is the selector the tag renderer stamps on element id.
func LocatorForID(id int) Locator {
	return Locator(fmt.Sprintf(`[data-ai-id="%d"]`, id))
}

// Observation is the page state at one point in time. Element ids are
// renumbered on every render, so an Observation's Locators must never be used
// with ids chosen against a different Observation.
type Observation struct {
	URL        string
	Screenshot []byte
	Text       string
	Locators   Locators
}

// Lookup resolves id against this observation. A nil observation has no
// elements.
func (o *Observation) Lookup(id int) (Locator, bool) {
	if o == nil {
		return "", false
	}
	loc, ok := o.Locators[id]
	return loc, ok
}

// ElementLocators returns the id map, or nil for a nil observation.
func (o *Observation) ElementLocators() Locators {
	if o == nil {
		return nil
	}
	return o.Locators
}

func (o *Observation) ScreenshotBase64() string {
	if o == nil || len(o.Screenshot) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(o.Screenshot)
}

// ObservationError reports a failed render or screenshot.
type ObservationError struct {
	Stage string
	Err   error
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("observation failed during %s: %v", e.Stage, e.Err)
}

func (e *ObservationError) Unwrap() error {
	return e.Err
}
