package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/broken-bytes/Playground/internal/component"
	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/data"
	"github.com/broken-bytes/Playground/internal/layout"
	"github.com/broken-bytes/Playground/internal/native/host"
)

func newLayoutCmd(a *app) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print component layouts as C structs for native header authoring",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if manifest == "" {
				manifest = a.cfg.Data.Components
			}
			return printLayouts(cmd.OutOrStdout(), a, manifest)
		},
	}
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "component manifest (default [data] components)")
	return cmd
}

// printLayouts registers the built-in and manifest components on an
// in-process engine and writes their layouts in registration order.
func printLayouts(out io.Writer, a *app, manifest string) error {
	w := ecs.Open(host.New(), ecs.WithLogger(a.log))
	defer w.Close()
	if _, err := component.Register(w); err != nil {
		return err
	}
	if manifest != "" {
		m, err := data.LoadManifest(manifest)
		if err != nil {
			return err
		}
		if _, err := m.Register(w); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "#pragma once")
	fmt.Fprintln(out, "#include <stdbool.h>")
	fmt.Fprintln(out, "#include <stdint.h>")
	emitted := make(map[string]bool)
	for _, d := range w.Registry().All() {
		writeStruct(out, d.Layout, emitted)
	}
	return nil
}

var cTypes = map[layout.Kind]string{
	layout.Bool:    "bool",
	layout.Int8:    "int8_t",
	layout.Uint8:   "uint8_t",
	layout.Int16:   "int16_t",
	layout.Uint16:  "uint16_t",
	layout.Int32:   "int32_t",
	layout.Uint32:  "uint32_t",
	layout.Int64:   "int64_t",
	layout.Uint64:  "uint64_t",
	layout.Float32: "float",
	layout.Float64: "double",
	layout.Handle:  "uintptr_t",
}

// writeStruct writes nested structs before the struct using them.
func writeStruct(out io.Writer, s *layout.Struct, emitted map[string]bool) {
	if s == nil || emitted[s.Name] {
		return
	}
	emitted[s.Name] = true
	for _, f := range s.Fields {
		if f.Kind == layout.Nested {
			writeStruct(out, f.Elem, emitted)
		}
	}

	fmt.Fprintf(out, "\n// size %d, align %d\n", s.Size, s.Align)
	fmt.Fprintf(out, "typedef struct %s {\n", s.Name)
	for _, f := range s.Fields {
		typ := cTypes[f.Kind]
		if f.Kind == layout.Nested {
			typ = f.Elem.Name
		}
		decl := typ + " " + f.Name
		if f.Count > 0 {
			decl += fmt.Sprintf("[%d]", f.Count)
		}
		fmt.Fprintf(out, "    %s;%s// offset %d\n", decl, strings.Repeat(" ", max(1, 32-len(decl))), f.Offset)
	}
	fmt.Fprintf(out, "} %s;\n", s.Name)
}
