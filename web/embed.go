// Package web embeds the page templates and static assets of the budget UI.
package web

import "embed"

// TemplatesFS holds templates/*.html.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds static/*, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
