package common

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLText returns the visible text of an HTML document, one text node per
// line. Heading elements are prefixed with markdown hashes so section
// structure survives.
func HTMLText(r io.Reader) (string, error) {
	var b strings.Builder
	tokenizer := html.NewTokenizer(r)
	skip := 0
	heading := ""

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != io.EOF {
				return "", err
			}
			return b.String(), nil
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch tag := string(name); tag {
			case "script", "style":
				skip++
			case "h1", "h2", "h3", "h4":
				heading = strings.Repeat("#", int(tag[1]-'0')) + " "
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch tag := string(name); tag {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "h1", "h2", "h3", "h4":
				heading = ""
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if t := strings.TrimSpace(string(tokenizer.Text())); t != "" {
				b.WriteString(heading)
				b.WriteString(t)
				b.WriteByte('\n')
			}
		}
	}
}
