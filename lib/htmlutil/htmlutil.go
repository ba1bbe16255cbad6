package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

// OwnString mirrors a node whose only child is text: it returns the text
// of the first matched node when that node has exactly one text child,
// otherwise ok is false. Markup like `<span>a<b>b</b></span>` has no own
// string.
func OwnString(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	node := sel.Nodes[0]
	child := node.FirstChild
	if child == nil || child.NextSibling != nil || child.Type != html.TextNode {
		return "", false
	}
	return child.Data, true
}

// TrimmedString is OwnString with newlines removed and whitespace trimmed,
// "" when the node is missing.
func TrimmedString(sel *goquery.Selection) string {
	s, ok := OwnString(sel)
	if !ok {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}
