package web

import (
	"embed"
	"strings"
)

var (
	//go:embed static/*
	embeddedStaticFiles embed.FS

	//go:embed templates/*
	embeddedTemplates embed.FS
)

// joinStrings is the template helper listing groups.
func joinStrings(items []string, sep string) string {
	return strings.Join(items, sep)
}
