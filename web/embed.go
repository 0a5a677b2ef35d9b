// Package web holds the assets compiled into the housebudget binary.
package web

import "embed"

// TemplatesFS holds the page layouts and the htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS is served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
