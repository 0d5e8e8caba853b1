package ecs

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeName trims and NFC-normalises a name before it crosses the native
// boundary, so visually identical names resolve to one entity.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
