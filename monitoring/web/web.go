// Package web holds the page served by the bring-up monitor.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// DevEnv names the environment variable that makes the monitor serve the
// page from the source tree, so it can be edited without rebuilding.
const DevEnv = "DRAMCAL_MONITOR_DEV"

//go:embed dist
var dist embed.FS

// GetAssets returns the file system the monitor serves under "/".
func GetAssets() http.FileSystem {
	if dir, ok := sourceDir(); ok {
		return http.Dir(dir)
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

func sourceDir() (string, bool) {
	dev, err := strconv.ParseBool(os.Getenv(DevEnv))
	if err != nil || !dev {
		return "", false
	}

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", false
	}

	return filepath.Join(filepath.Dir(file), "dist"), true
}
