package server

import (
	"net/http"
	"strings"

	"pcbd/internal/storage"
)

// RegisterStatic serves stored image blobs back by key under the public
// path (e.g. /static/images/<key>).
func (a *App) RegisterStatic(store *storage.Store) {
	prefix := strings.TrimSuffix(a.cfg.Storage.PublicPath, "/") + "/"
	fileServer := http.StripPrefix(prefix, http.FileServer(http.Dir(store.Dir())))
	a.Router.PathPrefix(prefix).Handler(fileServer).Methods(http.MethodGet)
}
