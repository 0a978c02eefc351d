// internal/browser/session/script.go
package session

import (
	_ "embed"
	"fmt"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
)

//go:embed js/element.js
var elementJS string

// elementOp names an operation understood by js/element.js.
type elementOp string

const (
	opProbe  elementOp = "probe"
	opPoint  elementOp = "point"
	opClick  elementOp = "click"
	opScroll elementOp = "scroll"
	opClear  elementOp = "clear"
)

// elementResult is the object js/element.js returns.
type elementResult struct {
	dom.ElementState
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Intercepted bool    `json:"intercepted"`
}

// elementCall renders the expression that runs op against xpath.
func elementCall(xpath string, op elementOp, arg string) string {
	return fmt.Sprintf("(%s)(%s, %s, %s)", strings.TrimSpace(elementJS), jsonEncode(xpath), jsonEncode(string(op)), jsonEncode(arg))
}

func decodeElementResult(raw []byte) (elementResult, error) {
	var res elementResult
	if len(raw) == 0 {
		return res, fmt.Errorf("empty element result")
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("decoding element result %q: %w", raw, err)
	}
	return res, nil
}

// jsonEncode renders v as a JavaScript literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
