//go:build !(darwin || linux)

package ffi

import (
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Open is unavailable on this platform; use Bind with a table filled by the
// embedding host instead.
func Open(path string, log *zap.Logger) (*Library, error) {
	return nil, eris.Errorf("loading %s: dynamic loading not supported on %s", path, runtime.GOOS)
}

func closeHandle(uintptr) error { return nil }
