package datasus

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// extractDropdownLinks собирает href всех <a class="dropdown-item"> на странице.
//
// Формат страницы датасета: выгрузки перечислены в dropdown меню ресурсов.
func extractDropdownLinks(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href, class string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "href":
					href = attr.Val
				case "class":
					class = attr.Val
				}
			}
			if href != "" && hasClass(class, "dropdown-item") {
				hrefs = append(hrefs, href)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return hrefs, nil
}

func hasClass(classAttr, want string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == want {
			return true
		}
	}
	return false
}
