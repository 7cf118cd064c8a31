// Package web embeds the browser client for the word cloud.
//
// The dist/ directory is embedded at build time. When web/dist exists on
// disk it is served instead, so the client can be edited without a rebuild.
package web

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

// assets holds the client files from dist/.
//
//go:embed dist/*
var assets embed.FS

// GetAssets returns the client files. If devPath (default "./web/dist")
// is a directory it is served live; otherwise the embedded copy is used.
func GetAssets(devPath string) fs.FS {
	if devPath == "" {
		devPath = "./web/dist"
	}

	if stat, err := os.Stat(devPath); err == nil && stat.IsDir() {
		return os.DirFS(devPath)
	}

	subFS, err := fs.Sub(assets, "dist")
	if err != nil {
		panic("failed to access embedded web assets: " + err.Error())
	}
	return subFS
}

// GetAssetsWithBase is GetAssets with the live directory at
// baseDir/web/dist.
func GetAssetsWithBase(baseDir string) fs.FS {
	devPath := filepath.Join(baseDir, "web", "dist")
	return GetAssets(devPath)
}
