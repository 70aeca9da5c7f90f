package web

import (
	"html/template"
	"path"
	"strconv"
	"strings"
	"time"
)

// DateLayout is how publication dates are shown.
const DateLayout = "2 January 2006, 15:04"

func (e *Engine) funcs() template.FuncMap {
	return template.FuncMap{
		"media":         e.media,
		"webp":          webpSibling,
		"date":          formatDate,
		"linebreaksbr":  linebreaksbr,
		"truncatewords": truncateWords,
		"idstr":         func(id uint) string { return strconv.FormatUint(uint64(id), 10) },
		"add":           func(a, b int) int { return a + b },
	}
}

func (e *Engine) media(rel string) string {
	if rel == "" {
		return ""
	}
	return strings.TrimSuffix(e.mediaURL, "/") + "/" + strings.TrimPrefix(rel, "/")
}

func webpSibling(rel string) string {
	if rel == "" {
		return ""
	}
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".webp"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// linebreaksbr escapes s and turns newlines into <br>.
func linebreaksbr(s string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>")) //nolint:gosec // input is escaped above
}

// truncateWords keeps the first n words of s and appends an ellipsis when
// anything was cut.
func truncateWords(n int, s string) string {
	words := strings.Fields(s)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}
