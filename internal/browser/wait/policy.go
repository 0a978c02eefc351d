// internal/browser/wait/policy.go
// Package wait describes the page states a caller can block on and the
// bounded poll loop that evaluates them.
package wait

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
	"github.com/xkilldash9x/loginprobe/internal/browser/locator"
)

// Kind names a condition.
type Kind string

const (
	ElementVisible   Kind = "element-visible"
	ElementClickable Kind = "element-clickable"
	ElementInvisible Kind = "element-invisible"
	ElementPresent   Kind = "element-present"
	ElementChecked   Kind = "element-checked"
	URLContains      Kind = "url-contains"
	AnyOf            Kind = "any-of"
)

// Condition is a single predicate over the page. Build one with the
// constructors below; the zero value never holds.
type Condition struct {
	kind     Kind
	target   locator.Locator
	fragment string
	anyOf    []Condition
}

func Visible(l locator.Locator) Condition   { return Condition{kind: ElementVisible, target: l} }
func Clickable(l locator.Locator) Condition { return Condition{kind: ElementClickable, target: l} }
func Invisible(l locator.Locator) Condition { return Condition{kind: ElementInvisible, target: l} }
func Present(l locator.Locator) Condition   { return Condition{kind: ElementPresent, target: l} }
func Checked(l locator.Locator) Condition   { return Condition{kind: ElementChecked, target: l} }

// URLHas holds when the current URL contains fragment.
func URLHas(fragment string) Condition { return Condition{kind: URLContains, fragment: fragment} }

// Any holds when at least one of conds holds.
func Any(conds ...Condition) Condition {
	return Condition{kind: AnyOf, anyOf: append([]Condition(nil), conds...)}
}

func (c Condition) Kind() Kind { return c.kind }

func (c Condition) String() string {
	switch c.kind {
	case URLContains:
		return fmt.Sprintf("%s(%q)", c.kind, c.fragment)
	case AnyOf:
		parts := make([]string, len(c.anyOf))
		for i, sub := range c.anyOf {
			parts[i] = sub.String()
		}
		return fmt.Sprintf("%s(%s)", c.kind, strings.Join(parts, ", "))
	case "":
		return "<none>"
	default:
		return fmt.Sprintf("%s(%s)", c.kind, c.target)
	}
}

// Eval checks the condition once against the current page.
func (c Condition) Eval(ctx context.Context, insp dom.Inspector) (bool, error) {
	switch c.kind {
	case URLContains:
		url, err := insp.URL(ctx)
		if err != nil {
			return false, err
		}
		return strings.Contains(url, c.fragment), nil
	case AnyOf:
		return evalAny(ctx, insp, c.anyOf)
	case "":
		return false, errors.New("empty condition")
	}

	state, err := insp.Probe(ctx, c.target.XPath())
	if err != nil {
		return false, err
	}
	switch c.kind {
	case ElementVisible:
		return state.Displayed(), nil
	case ElementClickable:
		return state.Clickable(), nil
	case ElementInvisible:
		return !state.Displayed(), nil
	case ElementPresent:
		return state.Present(), nil
	case ElementChecked:
		return state.Present() && state.IsChecked(), nil
	default:
		return false, fmt.Errorf("unknown condition kind %q", c.kind)
	}
}

// evalAny holds as soon as one member holds. Errors only surface when no
// member held.
func evalAny(ctx context.Context, insp dom.Inspector, conds []Condition) (bool, error) {
	var errs []error
	for _, c := range conds {
		ok, err := c.Eval(ctx, insp)
		if ok {
			return true, nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
		}
	}
	return false, errors.Join(errs...)
}

// Policy is a disjunction of conditions with a time budget. It is built per
// call and holds no state between calls.
type Policy struct {
	Conditions []Condition
	Timeout    time.Duration
	Interval   time.Duration
}

// For is shorthand for a policy over conds with the given timeout.
func For(timeout time.Duration, conds ...Condition) Policy {
	return Policy{Conditions: conds, Timeout: timeout}
}

// Every returns a copy of p polling at interval.
func (p Policy) Every(interval time.Duration) Policy {
	p.Interval = interval
	return p
}

func (p Policy) String() string {
	return fmt.Sprintf("%s within %s", Any(p.Conditions...), p.Timeout)
}

// Holds evaluates the policy's disjunction once.
func (p Policy) Holds(ctx context.Context, insp dom.Inspector) (bool, error) {
	if len(p.Conditions) == 0 {
		return false, errors.New("policy has no conditions")
	}
	return evalAny(ctx, insp, p.Conditions)
}

// Until blocks until the policy holds or its timeout elapses.
func Until(ctx context.Context, insp dom.Inspector, p Policy) error {
	return Poll(ctx, p.Timeout, p.Interval, func(ctx context.Context) (bool, error) {
		return p.Holds(ctx, insp)
	})
}
