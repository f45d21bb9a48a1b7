// Package web holds the signal page that the monitoring server serves.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"

	"github.com/pkg/errors"
)

//go:embed dist
var dist embed.FS

// AssetDirEnv names the environment variable that points the server to a
// directory on disk instead of the embedded page, so that the page can be
// edited without rebuilding.
const AssetDirEnv = "ATTILA_MONITOR_ASSETS"

// Assets returns the files of the monitoring page.
func Assets() (http.FileSystem, error) {
	dir := os.Getenv(AssetDirEnv)
	if dir == "" {
		sub, err := fs.Sub(dist, "dist")
		if err != nil {
			return nil, errors.Wrap(err, "embedded monitoring page")
		}

		return http.FS(sub), nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "monitoring page from %s", AssetDirEnv)
	}

	if !info.IsDir() {
		return nil, errors.Errorf("%s=%s is not a directory", AssetDirEnv, dir)
	}

	return http.Dir(dir), nil
}

// Handler serves the monitoring page. Responses are not cached, so a reload
// always picks up an edited page.
func Handler() (http.Handler, error) {
	assets, err := Assets()
	if err != nil {
		return nil, err
	}

	files := http.FileServer(assets)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	}), nil
}
