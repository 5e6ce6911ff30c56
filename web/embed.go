// Package web embeds the dashboard templates and static assets.
package web

import "embed"

// TemplatesFS holds index.html and the partials it renders.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the notification script.
//
//go:embed static/*
var StaticFS embed.FS
