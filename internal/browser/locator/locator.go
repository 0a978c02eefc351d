// internal/browser/locator/locator.go
// Package locator models the structural queries used to address elements on
// the page under test. Every locator, whatever its surface syntax, compiles
// down to a single XPath 1.0 expression so that the browser side only needs
// one resolution path (document.evaluate) and offline checks can reuse the
// same expression against a parsed HTML snapshot.
package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// Kind identifies the surface form a locator was written in.
type Kind string

const (
	KindID       Kind = "id"
	KindXPath    Kind = "xpath"
	KindLink     Kind = "link"
	KindText     Kind = "text"
	KindAttr     Kind = "attr"
	KindClass    Kind = "class"
	KindContains Kind = "contains"
)

// Case folding table used for text containment. XPath 1.0 has no lower-case()
// so translate() with an explicit alphabet is the portable option.
const (
	upperAlpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlpha = "abcdefghijklmnopqrstuvwxyz"
)

var (
	ErrEmpty       = errors.New("locator is empty")
	ErrUnknownKind = errors.New("unknown locator kind")
	ErrBadValue    = errors.New("invalid locator value")
)

var attrNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.:-]*$`)

// Locator is an immutable reference to zero or more elements. It is resolved
// at the moment of use and never caches a node.
type Locator struct {
	kind  Kind
	value string
	attr  string
}

// ByID matches elements whose id attribute equals id.
func ByID(id string) Locator { return Locator{kind: KindID, value: id} }

// ByXPath wraps a raw XPath expression.
func ByXPath(expr string) Locator { return Locator{kind: KindXPath, value: expr} }

// ByLinkText matches anchors whose whitespace-normalized text equals text.
func ByLinkText(text string) Locator { return Locator{kind: KindLink, value: text} }

// ByText matches the innermost elements whose normalized text equals text.
func ByText(text string) Locator { return Locator{kind: KindText, value: text} }

// ByAttr matches elements carrying attribute name with exactly value.
func ByAttr(name, value string) Locator {
	return Locator{kind: KindAttr, attr: name, value: value}
}

// ByClass matches elements whose class attribute contains fragment.
func ByClass(fragment string) Locator { return Locator{kind: KindClass, value: fragment} }

// ByContains matches elements whose own text contains needle, ignoring ASCII case.
func ByContains(needle string) Locator { return Locator{kind: KindContains, value: needle} }

// Parse reads the "kind=value" string form. A bare expression starting with
// '/' or '(' is taken as XPath.
func Parse(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, ErrEmpty
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		l := ByXPath(s)
		return l, l.Validate()
	}

	rawKind, value, ok := strings.Cut(s, "=")
	if !ok {
		return Locator{}, fmt.Errorf("%w: %q has no kind prefix", ErrBadValue, s)
	}
	kind := Kind(strings.ToLower(strings.TrimSpace(rawKind)))

	var l Locator
	switch kind {
	case KindID:
		l = ByID(value)
	case KindXPath:
		l = ByXPath(value)
	case KindLink:
		l = ByLinkText(value)
	case KindText:
		l = ByText(value)
	case KindClass:
		l = ByClass(value)
	case KindContains:
		l = ByContains(value)
	case KindAttr:
		name, attrValue, ok := strings.Cut(value, "=")
		if !ok {
			return Locator{}, fmt.Errorf("%w: attr locator %q must be name=value", ErrBadValue, value)
		}
		l = ByAttr(strings.TrimSpace(name), attrValue)
	default:
		return Locator{}, fmt.Errorf("%w: %q", ErrUnknownKind, rawKind)
	}
	return l, l.Validate()
}

// MustParse is Parse for locators known at compile time.
func MustParse(s string) Locator {
	l, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("locator: MustParse(%q): %v", s, err))
	}
	return l
}

// Validate reports whether the locator is well formed and compiles to a
// syntactically valid XPath expression.
func (l Locator) Validate() error {
	if l.IsZero() {
		return ErrEmpty
	}
	if l.value == "" {
		return fmt.Errorf("%w: %s locator has an empty value", ErrBadValue, l.kind)
	}
	if l.kind == KindAttr && !attrNamePattern.MatchString(l.attr) {
		return fmt.Errorf("%w: %q is not an attribute name", ErrBadValue, l.attr)
	}
	if _, err := xpath.Compile(l.XPath()); err != nil {
		return fmt.Errorf("%w: %s does not compile: %v", ErrBadValue, l, err)
	}
	return nil
}

func (l Locator) Kind() Kind { return l.kind }

func (l Locator) Value() string { return l.value }

func (l Locator) IsZero() bool { return l.kind == "" }

// String returns the canonical "kind=value" form accepted by Parse.
func (l Locator) String() string {
	if l.IsZero() {
		return "<none>"
	}
	if l.kind == KindAttr {
		return fmt.Sprintf("%s=%s=%s", l.kind, l.attr, l.value)
	}
	return fmt.Sprintf("%s=%s", l.kind, l.value)
}

// XPath compiles the locator into the expression evaluated by the browser.
func (l Locator) XPath() string {
	switch l.kind {
	case KindID:
		return "//*[@id=" + literal(l.value) + "]"
	case KindXPath:
		return l.value
	case KindLink:
		return "//a[normalize-space()=" + literal(l.value) + "]"
	case KindText:
		// Restrict to the innermost match so that wrappers sharing the same
		// normalized text do not shadow the element a user would click.
		lit := literal(l.value)
		return "//*[normalize-space()=" + lit + "][not(*[normalize-space()=" + lit + "])]"
	case KindAttr:
		return "//*[@" + l.attr + "=" + literal(l.value) + "]"
	case KindClass:
		return "//*[contains(@class," + literal(l.value) + ")]"
	case KindContains:
		return "//*[contains(translate(text(),'" + upperAlpha + "','" + lowerAlpha + "')," +
			literal(strings.ToLower(l.value)) + ")]"
	default:
		return ""
	}
}

// MatchStatic evaluates the locator against a parsed HTML document. It is
// used to verify locators offline against saved page snapshots.
func (l Locator) MatchStatic(doc *html.Node) ([]*html.Node, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	nodes, err := htmlquery.QueryAll(doc, l.XPath())
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", l, err)
	}
	return nodes, nil
}

// literal quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is assembled with concat().
func literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
