// Package site serves the embedded frame player.
package site

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
)

// Prefix is where the player is mounted.
const Prefix = "/player/"

//go:embed static/*
var playerFS embed.FS

// Register mounts the player under Prefix and redirects / to it.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	assets, err := fs.Sub(playerFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle(Prefix, http.StripPrefix(Prefix, http.FileServerFS(assets)))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, Prefix, http.StatusFound)
	})
}
