// internal/browser/dom/state.go
// Package dom holds the element-level view of the page that the interaction
// layer reasons about: what a single probe observed and the errors the
// browser side can report back.
package dom

import (
	"context"
	"errors"
)

var (
	// ErrClickIntercepted is returned by a native click when the hit-test at
	// the element's centre lands on a different element.
	ErrClickIntercepted = errors.New("click intercepted by another element")
	// ErrNoSuchElement is returned by element operations when the locator
	// resolves to nothing at the moment of the call.
	ErrNoSuchElement = errors.New("no element matches locator")
)

// ElementState is a snapshot taken by one probe. The flags describe the
// resolved element: the first visible match, or the first match when none of
// them is visible.
type ElementState struct {
	Count       int    `json:"count"`
	Visible     bool   `json:"visible"`
	Enabled     bool   `json:"enabled"`
	Obstructed  bool   `json:"obstructed"`
	Selected    bool   `json:"selected"`
	Checked     bool   `json:"checked"`
	AriaChecked string `json:"ariaChecked,omitempty"`
	Text        string `json:"text,omitempty"`
	Tag         string `json:"tag,omitempty"`
	Obstructor  string `json:"obstructor,omitempty"`
}

func (s ElementState) Present() bool { return s.Count > 0 }

// Displayed is the "present and visible" test used for overlays and
// visibility waits.
func (s ElementState) Displayed() bool { return s.Present() && s.Visible }

// Clickable requires the element to be displayed, enabled and the topmost
// element at its centre point.
func (s ElementState) Clickable() bool {
	return s.Displayed() && s.Enabled && !s.Obstructed
}

// Interactable is Clickable without the hit-test requirement. An element in
// this state may still receive a script-level click.
func (s ElementState) Interactable() bool {
	return s.Displayed() && s.Enabled
}

// IsChecked accepts any of the three signals a checkbox widget may expose:
// the selected property, aria-checked="true", or a checked attribute.
func (s ElementState) IsChecked() bool {
	return s.Selected || s.AriaChecked == "true" || s.Checked
}

// Inspector is the read-only side of a page. Implementations re-resolve the
// XPath on every call.
type Inspector interface {
	Probe(ctx context.Context, xpath string) (ElementState, error)
	URL(ctx context.Context) (string, error)
}
