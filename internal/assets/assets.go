// Package assets embeds the client JavaScript and CSS for the storefront,
// the editor, and the preview frame.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed client/*
var clientFS embed.FS

// ClientFS returns the embedded client files.
func ClientFS() fs.FS {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetStorefrontCSS returns the base stylesheet shared by the storefront and
// the preview frame.
func GetStorefrontCSS() ([]byte, error) {
	return clientFS.ReadFile("client/storefront.css")
}

// GetEditorJS returns the editor page script (host side of the preview
// protocol).
func GetEditorJS() ([]byte, error) {
	return clientFS.ReadFile("client/editor.js")
}

// GetEditorCSS returns the editor chrome stylesheet.
func GetEditorCSS() ([]byte, error) {
	return clientFS.ReadFile("client/editor.css")
}

// GetPreviewJS returns the preview frame script (guest side of the preview
// protocol).
func GetPreviewJS() ([]byte, error) {
	return clientFS.ReadFile("client/preview.js")
}
