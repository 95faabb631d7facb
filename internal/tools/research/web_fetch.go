// Package research provides web retrieval tools.
package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"drover/internal/logging"
	"drover/internal/tools"

	"golang.org/x/net/html"
)

const (
	fetchTimeout  = 60 * time.Second
	fetchBodyCapB = 2 << 20 // 2MB
	userAgent     = "Mozilla/5.0 (compatible; drover/1.0)"
)

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// WebFetchTool returns a tool for fetching web pages as markdown. Fetching
// an arbitrary URL reaches outside the workspace, so it confirms.
func WebFetchTool() *tools.Tool {
	return &tools.Tool{
		Name:        "web_fetch",
		Description: "Fetch a web page and convert its content to markdown",
		Category:    tools.CategoryResearch,
		Priority:    70,
		Execute:     executeWebFetch,
		Describe: func(args map[string]any) string {
			return fmt.Sprintf("Fetch %s", tools.OptionalStringArg(args, "url", "?"))
		},
		Confirm: func(args map[string]any) *tools.ConfirmationDetails {
			url := tools.OptionalStringArg(args, "url", "?")
			return &tools.ConfirmationDetails{
				Title:       "Fetch URL",
				Description: fmt.Sprintf("Fetch %s over the network", url),
			}
		},
		Schema: tools.ToolSchema{
			Required: []string{"url"},
			Properties: map[string]tools.Property{
				"url": {
					Type:        "string",
					Description: "The URL to fetch",
				},
				"max_length": {
					Type:        "integer",
					Description: "Maximum content length in characters (default: 50000)",
					Default:     50000,
				},
			},
		},
	}
}

func executeWebFetch(ctx context.Context, args map[string]any) (tools.Output, error) {
	url, err := tools.StringArg(args, "url")
	if err != nil {
		return tools.Output{}, err
	}
	maxLength := tools.OptionalIntArg(args, "max_length", 50000)

	logging.ToolsDebug("web_fetch: url=%s, max_length=%d", url, maxLength)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tools.Output{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return tools.Output{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tools.Output{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyCapB))
	if err != nil {
		return tools.Output{}, fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	var text string
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "xhtml") {
		text, err = markdownFromHTML(string(body))
		if err != nil {
			return tools.Output{}, fmt.Errorf("failed to convert page: %w", err)
		}
	} else {
		text = string(body)
	}

	if len(text) > maxLength {
		text = text[:maxLength] + "\n\n[...truncated...]"
	}

	logging.Tools("web_fetch completed: %s (%d chars)", url, len(text))
	return tools.Output{Content: text}, nil
}

// markdownFromHTML renders HTML into a simplified markdown approximation
// suitable for model context.
func markdownFromHTML(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", err
	}

	var r mdRenderer
	r.walk(doc, 0)
	return tidyMarkdown(r.sb.String()), nil
}

type mdRenderer struct {
	sb strings.Builder
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"svg": true, "nav": true, "footer": true, "header": true,
}

var headingPrefix = map[string]string{
	"h1": "# ", "h2": "## ", "h3": "### ",
	"h4": "#### ", "h5": "##### ", "h6": "###### ",
}

func (r *mdRenderer) walk(n *html.Node, depth int) {
	if depth > 50 {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			r.sb.WriteString(text)
			r.sb.WriteString(" ")
		}

	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
		if prefix, ok := headingPrefix[n.Data]; ok {
			r.sb.WriteString("\n\n" + prefix)
			r.walkChildren(n, depth)
			r.sb.WriteString("\n\n")
			return
		}
		switch n.Data {
		case "p", "div":
			r.sb.WriteString("\n\n")
		case "br":
			r.sb.WriteString("\n")
		case "li":
			r.sb.WriteString("\n- ")
		case "pre":
			r.sb.WriteString("\n\n```\n")
			r.walkChildren(n, depth)
			r.sb.WriteString("\n```\n\n")
			return
		case "code":
			r.sb.WriteString("`")
			r.walkChildren(n, depth)
			r.sb.WriteString("`")
			return
		case "a":
			href := attr(n, "href")
			if href != "" && !strings.HasPrefix(href, "#") {
				r.sb.WriteString("[")
				r.walkChildren(n, depth)
				r.sb.WriteString(fmt.Sprintf("](%s)", href))
				return
			}
		case "img":
			if alt := attr(n, "alt"); alt != "" {
				fmt.Fprintf(&r.sb, "[image: %s]", alt)
			}
			return
		}
	}

	r.walkChildren(n, depth)
}

func (r *mdRenderer) walkChildren(n *html.Node, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c, depth+1)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// tidyMarkdown collapses runs of whitespace left behind by the renderer.
func tidyMarkdown(s string) string {
	s = multiSpacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")

	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
