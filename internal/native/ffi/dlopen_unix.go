//go:build darwin || linux

package ffi

import (
	"github.com/ebitengine/purego"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/native"
)

// Open loads the shared library at path, fills a lookup table from its
// exported ECS_* symbols and binds it.
func Open(path string, log *zap.Logger) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, eris.Wrapf(err, "open native library %s", path)
	}
	table := native.NewLookupTable()
	for _, names := range [][]string{native.RequiredEntries, native.OptionalEntries} {
		for _, name := range names {
			ptr, err := purego.Dlsym(handle, name)
			if err != nil {
				continue
			}
			table.AddEntry(name, ptr)
		}
	}
	lib, err := Bind(table, log.With(zap.String("library", path)))
	if err != nil {
		_ = purego.Dlclose(handle)
		return nil, err
	}
	lib.handle = handle
	return lib, nil
}

func closeHandle(handle uintptr) error {
	return purego.Dlclose(handle)
}
