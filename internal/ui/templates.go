package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/jw6ventures/fitverse/internal/api"
)

//go:embed templates/*
var templateFS embed.FS

var templates = mustParseTemplates()

// Raw HTML in posts is dropped; goldmark only emits it with html.WithUnsafe.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

var funcMap = template.FuncMap{
	"markdown": renderMarkdown,
	"tally":    api.Tally,
	"voteOf": func(votes []api.Vote, voterID string) string {
		d, _ := api.VoteOf(votes, voterID)
		return string(d)
	},
	"money": func(v float64) string {
		return fmt.Sprintf("$%.2f", v)
	},
	"formatDate": formatDate,
	"join":       strings.Join,
	"add":        func(a, b int) int { return a + b },
	"has": func(list []string, v string) bool {
		for _, item := range list {
			if item == v {
				return true
			}
		}
		return false
	},
	"statusOf": func(status string) string {
		if status == "" {
			return "active"
		}
		return status
	},
	"stars": func(n int) string {
		n = max(0, min(n, 5))
		return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
	},
}

func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		slog.Warn("markdown render failed", "error", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func formatDate(t any) string {
	switch v := t.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format("Jan 2, 2006")
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.UTC().Format("Jan 2, 2006")
	case string:
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed.UTC().Format("Jan 2, 2006")
		}
		return v
	}
	return ""
}

func mustParseTemplates() map[string]*template.Template {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}

	base := template.Must(template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html"))

	sets := make(map[string]*template.Template)
	for _, file := range files {
		if file == "templates/base.html" {
			continue
		}

		set := template.Must(base.Clone())
		template.Must(set.ParseFS(templateFS, file))
		sets[file[len("templates/"):]] = set
	}

	return sets
}
