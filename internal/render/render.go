// Package render turns assistant replies into the HTML fragment shown in the chat page.
package render

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	entityRe     = regexp.MustCompile(`&[a-zA-Z]+;`)
	blankRunRe   = regexp.MustCompile(`\n\s*\n`)
	sectionRe    = regexp.MustCompile(`^\d+\.\s+[📊🏢🔗]`)
	subsectionRe = regexp.MustCompile(`^\d+\.\s+[A-Z]`)
	linkRe       = regexp.MustCompile(`\[(.+?)\]\((.+?)\)`)
)

// placeholder lines the model emits about articles arriving later
var boilerplate = []string{
	"Please provide relevant articles",
	"Please provide the relevant articles",
	"I will provide current articles separately",
	"these will be filled in separately",
}

// Sanitize strips markup and entities from model output and collapses blank-line runs
func Sanitize(content string) string {
	content = tagRe.ReplaceAllString(content, "")
	content = entityRe.ReplaceAllString(content, "")
	content = blankRunRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

type builder struct {
	out    []string
	inList bool
}

func (b *builder) openList() {
	if !b.inList {
		b.out = append(b.out, "<ul>")
		b.inList = true
	}
}

func (b *builder) closeList() {
	if b.inList {
		b.out = append(b.out, "</ul>")
		b.inList = false
	}
}

func (b *builder) item(inner string) {
	b.openList()
	b.out = append(b.out, "<li>"+inner+"</li>")
}

func (b *builder) heading(tag, text string) {
	b.closeList()
	b.out = append(b.out, "<"+tag+">"+html.EscapeString(text)+"</"+tag+">")
}

// Render converts line-oriented markdown-ish text to HTML. Rules are applied
// per trimmed line and the first matching rule wins; every list opened is
// closed before returning.
func Render(content string) string {
	b := &builder{}

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			b.closeList()
			b.out = append(b.out, "<br>")
		case isBoilerplate(line):
			continue
		case sectionRe.MatchString(line):
			b.heading("h2", line)
		case strings.HasPrefix(line, "## "):
			b.heading("h2", strings.TrimSpace(line[3:]))
		case subsectionRe.MatchString(line):
			b.heading("h3", line)
		case strings.HasPrefix(line, "• "):
			b.item(convertLinks(strings.TrimSpace(strings.TrimPrefix(line, "• "))))
		case strings.HasPrefix(line, "- "):
			b.item(convertLinks(strings.TrimSpace(line[2:])))
		case strings.Contains(line, "[") && strings.Contains(line, "]("):
			b.item(convertLinks(line))
		case strings.HasPrefix(line, "http"):
			b.item(bareLink(line))
		default:
			b.item(html.EscapeString(line))
		}
	}
	b.closeList()

	return strings.Join(b.out, "\n")
}

// RenderMessage sanitizes then renders stored assistant content
func RenderMessage(content string) string {
	return Render(Sanitize(content))
}

func isBoilerplate(line string) bool {
	for _, phrase := range boilerplate {
		if strings.Contains(line, phrase) {
			return true
		}
	}
	return false
}

// linkTarget returns the href for an http, https or www. url and false for any other scheme
func linkTarget(url string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(url))
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return strings.TrimSpace(url), true
	case strings.HasPrefix(lower, "www."):
		return "https://" + strings.TrimSpace(url), true
	}
	return "", false
}

func anchor(href, text string) string {
	return `<a href="` + html.EscapeString(href) + `" target="_blank">` + html.EscapeString(text) + `</a>`
}

func bareLink(line string) string {
	href, ok := linkTarget(line)
	if !ok {
		return html.EscapeString(line)
	}
	return anchor(href, line)
}

// convertLinks escapes the text around markdown links and turns each link into an anchor
func convertLinks(s string) string {
	var sb strings.Builder
	last := 0
	for _, m := range linkRe.FindAllStringSubmatchIndex(s, -1) {
		sb.WriteString(html.EscapeString(s[last:m[0]]))
		if href, ok := linkTarget(s[m[4]:m[5]]); ok {
			sb.WriteString(anchor(href, s[m[2]:m[3]]))
		} else {
			sb.WriteString(html.EscapeString(s[m[0]:m[1]]))
		}
		last = m[1]
	}
	sb.WriteString(html.EscapeString(s[last:]))
	return sb.String()
}
