// internal/browser/dom/nodepath.go
package dom

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// NodePath builds an absolute XPath that selects exactly node in its
// document. The nearest ancestor carrying a quotable id becomes the anchor.
func NodePath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var segments []string
	anchored := false
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(n.Data)

		if id := htmlquery.SelectAttr(n, "id"); id != "" && !strings.Contains(id, "'") {
			segments = append(segments, fmt.Sprintf("//*[@id='%s']", id))
			anchored = true
			break
		}
		segments = append(segments, fmt.Sprintf("%s[%d]", tag, siblingIndex(n, tag)))
	}
	if len(segments) == 0 {
		return "/"
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	path := strings.Join(segments, "/")
	if !anchored {
		path = "/" + path
	}
	return path
}

// siblingIndex is the 1-based position of n among preceding element
// siblings sharing its tag.
func siblingIndex(n *html.Node, tag string) int {
	idx := 1
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
			idx++
		}
	}
	return idx
}

// Describe renders a node the way obstructors are reported from the browser:
// tag, then #id, then the first class.
func Describe(node *html.Node) string {
	if node == nil || node.Type != html.ElementNode {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(node.Data))
	if id := htmlquery.SelectAttr(node, "id"); id != "" {
		b.WriteString("#" + id)
	}
	if class := strings.Fields(htmlquery.SelectAttr(node, "class")); len(class) > 0 {
		b.WriteString("." + class[0])
	}
	return b.String()
}
