package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText returns the concatenated text content of a node and its children.
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
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeText collapses inner whitespace and strips non-printable runes,
// which asp.net pages tend to sprinkle into rendered labels.
func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors collects the (normalized name, href) pairs of every anchor in
// the selection. Anchors with unparseable hrefs are skipped.
func GetAnchors(sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		link, err := url.Parse(href)
		if err != nil {
			continue
		}

		anchors = append(anchors, Anchor{
			Name: NormalizeText(GetText(n)),
			Href: link.String(),
		})
	}

	return anchors
}

// ParseForm extracts the submittable values from the first form in the
// document: every named input (including hidden ones) plus the selected (or
// first) option of every select. The second return value is the form's
// action attribute, empty when unset.
func ParseForm(doc *goquery.Document) (url.Values, string) {
	values := url.Values{}

	form := doc.Find("form").First()
	if form.Length() == 0 {
		return values, ""
	}

	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		values.Set(name, input.AttrOr("value", ""))
	})

	form.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name := sel.AttrOr("name", "")
		if name == "" {
			return
		}
		option := sel.Find("option[selected]").First()
		if option.Length() == 0 {
			option = sel.Find("option").First()
		}
		if option.Length() > 0 {
			values.Set(name, option.AttrOr("value", ""))
		}
	})

	return values, form.AttrOr("action", "")
}
