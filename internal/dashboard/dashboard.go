// Package dashboard embeds the HTML templates and styles of the report page.
package dashboard

import "embed"

//go:embed templates/*.html
var Templates embed.FS

//go:embed assets/*
var Assets embed.FS
