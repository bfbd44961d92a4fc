// Package filename implements the reversible renaming applied to reserved
// file extensions before they are sent upstream.
//
// Files whose extension is reserved are stored as:
//
//	fileName#$originalExtension.DOLI
//
// e.g. report.klarf → report#$klarf.DOLI, result.025 → result#$025.DOLI.
// The original name is recovered on download.
package filename

import (
	"fmt"
	"regexp"
	"strings"
)

// reservedEntry marks one always-allowed extension. Synthetic entries (the
// numeric placeholder range) are hidden from human-readable labels.
type reservedEntry struct {
	ext       string
	synthetic bool
}

// Reserved extensions: klarf, stif, and the zero-padded numeric range 000-999.
var (
	reserved    = buildReserved()
	reservedSet = buildReservedSet()
)

func buildReserved() []reservedEntry {
	entries := []reservedEntry{
		{ext: "klarf"},
		{ext: "stif"},
	}
	for i := 0; i < 1000; i++ {
		entries = append(entries, reservedEntry{ext: fmt.Sprintf("%03d", i), synthetic: true})
	}
	return entries
}

func buildReservedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(reserved))
	for _, e := range reserved {
		set[e.ext] = struct{}{}
	}
	return set
}

var decodePattern = regexp.MustCompile(`(?i)^(.+)#\$([^.]+)\.DOLI$`)

// Ext returns the lower-cased extension of name (text after the last dot),
// or "" when there is none.
func Ext(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// IsReserved reports whether ext is in the reserved set. Matching is
// case-insensitive.
func IsReserved(ext string) bool {
	_, ok := reservedSet[strings.ToLower(ext)]
	return ok
}

// Reserved returns the reserved extensions, in table order.
func Reserved() []string {
	exts := make([]string, 0, len(reserved))
	for _, e := range reserved {
		exts = append(exts, e.ext)
	}
	return exts
}

// ReservedLabelled returns only the reserved extensions meant for
// human-readable labels, excluding the synthetic numeric range.
func ReservedLabelled() []string {
	var exts []string
	for _, e := range reserved {
		if !e.synthetic {
			exts = append(exts, e.ext)
		}
	}
	return exts
}

// Encode returns the name under which a file is stored upstream. Names with a
// reserved extension are rewritten to the #$...DOLI form; everything else
// passes through unchanged.
func Encode(name string) string {
	ext := Ext(name)
	if ext == "" || !IsReserved(ext) {
		return name
	}
	base := name[:strings.LastIndex(name, ".")]
	return base + "#$" + ext + ".DOLI"
}

// Decode recovers the original filename from a stored name. Names that do not
// match the #$...DOLI pattern pass through unchanged.
func Decode(storedName string) string {
	m := decodePattern.FindStringSubmatch(storedName)
	if m == nil {
		return storedName
	}
	return m[1] + "." + m[2]
}
