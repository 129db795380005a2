// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package cert

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// blockElements end the current text line when walking the HTML tree, so the
// line-oriented certificate parser sees the same layout a PDF text dump has.
var blockElements = map[string]bool{
	"p":     true,
	"div":   true,
	"br":    true,
	"li":    true,
	"tr":    true,
	"td":    true,
	"th":    true,
	"table": true,
	"h1":    true,
	"h2":    true,
	"h3":    true,
	"h4":    true,
	"h5":    true,
	"h6":    true,
}

// skipElements hold no certificate content.
var skipElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
}

// ExtractText renders an HTML certificate export as plain text, one line per
// block element.
func ExtractText(r io.Reader) (string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing certificate HTML: %w", err)
	}

	var sb strings.Builder

	nodeToLines(root, &sb)

	return sb.String(), nil
}

func nodeToLines(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && skipElements[n.Data] {
		return
	}

	if n.Type == html.TextNode {
		text := strings.Join(strings.Fields(n.Data), " ")
		if text != "" {
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
				sb.WriteByte(' ')
			}

			sb.WriteString(text)
		}

		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		nodeToLines(child, sb)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}
}
