// Package web embeds the member page: name lookup and recording upload.
package web

import "embed"

// TemplatesFS holds the server-rendered pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the script and stylesheet used by the pages.
//
//go:embed static/*
var StaticFS embed.FS
