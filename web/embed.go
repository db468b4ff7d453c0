// Package web embeds the UI assets so the server binary ships self-contained.
package web

import "embed"

// TemplatesFS holds the HTML templates rendered server-side, including the
// wizard and transaction list partials swapped in by htmx.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and any other static assets under /static/.
//
//go:embed static/*
var StaticFS embed.FS
