// internal/browser/session/script_test.go
package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
)

func TestElementCall(t *testing.T) {
	call := elementCall(`//*[@id='EMail1']`, opProbe, "")

	assert.True(t, strings.HasPrefix(call, "("))
	assert.Contains(t, call, "(xpath, op, arg) =>")
	assert.True(t, strings.HasSuffix(call, `)("//*[@id='EMail1']", "probe", "")`), call[len(call)-60:])
}

func TestElementCall_QuotesArguments(t *testing.T) {
	call := elementCall(`//*[normalize-space()="a \"b\""]`, opClear, "line\nbreak")

	assert.Contains(t, call, `"//*[normalize-space()=\"a \\\"b\\\"\"]"`)
	assert.Contains(t, call, `"line\nbreak"`)
	assert.NotContains(t, call, "line\nbreak")
}

func TestElementScriptEmbedded(t *testing.T) {
	require.NotEmpty(t, elementJS)
	for _, op := range []elementOp{opProbe, opPoint, opClick, opScroll, opClear} {
		assert.Contains(t, elementJS, "'"+string(op)+"'", "script does not handle %s", op)
	}
}

func TestDecodeElementResult(t *testing.T) {
	raw := []byte(`{"count":2,"visible":true,"enabled":true,"obstructed":true,
		"obstructor":"div.modal-backdrop","ariaChecked":"true","tag":"button",
		"x":120.5,"y":48,"intercepted":true}`)

	res, err := decodeElementResult(raw)
	require.NoError(t, err)

	assert.Equal(t, dom.ElementState{
		Count:       2,
		Visible:     true,
		Enabled:     true,
		Obstructed:  true,
		Obstructor:  "div.modal-backdrop",
		AriaChecked: "true",
		Tag:         "button",
	}, res.ElementState)
	assert.Equal(t, 120.5, res.X)
	assert.Equal(t, 48.0, res.Y)
	assert.True(t, res.Intercepted)
}

func TestDecodeElementResult_NoMatch(t *testing.T) {
	res, err := decodeElementResult([]byte(`{"count":0}`))
	require.NoError(t, err)
	assert.False(t, res.Present())
}

func TestDecodeElementResult_Errors(t *testing.T) {
	_, err := decodeElementResult(nil)
	assert.Error(t, err)

	_, err = decodeElementResult([]byte(`not json`))
	assert.Error(t, err)
}
