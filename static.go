// Package speedwatch embeds the browser page served at /.
package speedwatch

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed static/*
var StaticFiles embed.FS

// StaticFS returns the page assets rooted at static/. In dev mode they are
// read from ./static so edits show up without a rebuild.
func StaticFS(dev bool) (fs.FS, error) {
	if dev {
		return os.DirFS("static"), nil
	}
	return fs.Sub(StaticFiles, "static")
}
