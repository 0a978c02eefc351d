// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
)

// -- Page Mock --

// MockPage is a testify mock of the element-level page and the
// navigation surface a test case drives.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Probe(ctx context.Context, xpath string) (dom.ElementState, error) {
	args := m.Called(ctx, xpath)
	return args.Get(0).(dom.ElementState), args.Error(1)
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) NativeClick(ctx context.Context, xpath string) error {
	return m.Called(ctx, xpath).Error(0)
}

func (m *MockPage) ScriptClick(ctx context.Context, xpath string) error {
	return m.Called(ctx, xpath).Error(0)
}

func (m *MockPage) ScrollIntoView(ctx context.Context, xpath string) error {
	return m.Called(ctx, xpath).Error(0)
}

func (m *MockPage) Type(ctx context.Context, xpath, text string) error {
	return m.Called(ctx, xpath, text).Error(0)
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) Back(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	var buf []byte
	if v := args.Get(0); v != nil {
		buf = v.([]byte)
	}
	return buf, args.Error(1)
}

// -- Scripted Page --

// Action is one recorded mutating call on a FakePage.
type Action struct {
	Op    string
	XPath string
	Text  string
}

// FakePage is a scripted, concurrency-safe page. Each XPath owns a queue of
// states: every probe consumes the head and the last state repeats forever.
// Unknown XPaths probe as absent.
type FakePage struct {
	mu        sync.Mutex
	states    map[string][]dom.ElementState
	probeErrs map[string]probeFailure
	probes    map[string]int
	urls      []string
	history   []string
	actions   []Action

	NativeClickErr map[string]error
	ScriptClickErr map[string]error

	// OnClick runs after a successful click of either kind, outside the lock,
	// so it may reshape the page with SetState or SetURL.
	OnClick func(p *FakePage, op, xpath string)
}

func NewFakePage(url string) *FakePage {
	return &FakePage{
		states:         make(map[string][]dom.ElementState),
		probeErrs:      make(map[string]probeFailure),
		probes:         make(map[string]int),
		urls:           []string{url},
		NativeClickErr: make(map[string]error),
		ScriptClickErr: make(map[string]error),
	}
}

// SetState replaces the state queue for xpath.
func (p *FakePage) SetState(xpath string, states ...dom.ElementState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[xpath] = append([]dom.ElementState(nil), states...)
}

type probeFailure struct {
	after int
	err   error
}

// SetProbeErr makes probes of xpath fail with err until cleared with nil.
func (p *FakePage) SetProbeErr(xpath string, err error) {
	p.FailProbesAfter(xpath, 0, err)
}

// FailProbesAfter lets the next n probes of xpath succeed and fails every
// later one with err. A nil err clears the failure.
func (p *FakePage) FailProbesAfter(xpath string, n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.probeErrs, xpath)
		return
	}
	p.probeErrs[xpath] = probeFailure{after: p.probes[xpath] + n, err: err}
}

// SetURL replaces the URL queue; the last entry repeats.
func (p *FakePage) SetURL(urls ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append([]string(nil), urls...)
}

func (p *FakePage) ProbeCount(xpath string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes[xpath]
}

func (p *FakePage) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Action(nil), p.actions...)
}

func (p *FakePage) Probe(ctx context.Context, xpath string) (dom.ElementState, error) {
	if err := ctx.Err(); err != nil {
		return dom.ElementState{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[xpath]++
	if f, ok := p.probeErrs[xpath]; ok && p.probes[xpath] > f.after {
		return dom.ElementState{}, f.err
	}
	q := p.states[xpath]
	if len(q) == 0 {
		return dom.ElementState{}, nil
	}
	head := q[0]
	if len(q) > 1 {
		p.states[xpath] = q[1:]
	}
	return head, nil
}

func (p *FakePage) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.urls) == 0 {
		return "", nil
	}
	head := p.urls[0]
	if len(p.urls) > 1 {
		p.urls = p.urls[1:]
	}
	return head, nil
}

func (p *FakePage) NativeClick(ctx context.Context, xpath string) error {
	return p.click(ctx, "native-click", xpath, p.NativeClickErr)
}

func (p *FakePage) ScriptClick(ctx context.Context, xpath string) error {
	return p.click(ctx, "script-click", xpath, p.ScriptClickErr)
}

func (p *FakePage) click(ctx context.Context, op, xpath string, errs map[string]error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.actions = append(p.actions, Action{Op: op, XPath: xpath})
	err := errs[xpath]
	if err == nil && !p.presentLocked(xpath) {
		err = dom.ErrNoSuchElement
	}
	hook := p.OnClick
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(p, op, xpath)
	}
	return nil
}

func (p *FakePage) ScrollIntoView(ctx context.Context, xpath string) error {
	return p.record(ctx, Action{Op: "scroll", XPath: xpath})
}

func (p *FakePage) Type(ctx context.Context, xpath, text string) error {
	return p.record(ctx, Action{Op: "type", XPath: xpath, Text: text})
}

func (p *FakePage) record(ctx context.Context, a Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, a)
	if !p.presentLocked(a.XPath) {
		return dom.ErrNoSuchElement
	}
	return nil
}

// presentLocked peeks at the head state without consuming it.
func (p *FakePage) presentLocked(xpath string) bool {
	q := p.states[xpath]
	return len(q) > 0 && q[0].Present()
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.urls) > 0 {
		p.history = append(p.history, p.urls[len(p.urls)-1])
	}
	p.urls = []string{url}
	p.actions = append(p.actions, Action{Op: "navigate", Text: url})
	return nil
}

func (p *FakePage) Back(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, Action{Op: "back"})
	if len(p.history) == 0 {
		return errors.New("no history entry to go back to")
	}
	p.urls = []string{p.history[len(p.history)-1]}
	p.history = p.history[:len(p.history)-1]
	return nil
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte("\x89PNG fake"), nil
}
