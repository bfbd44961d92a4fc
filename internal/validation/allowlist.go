// Package validation filters an incoming batch of files before any network
// traffic happens: first against the extension allowlist, then against the
// attachments already known for the parent record. Rejections are batch-local
// and non-fatal; surviving files proceed.
package validation

import (
	"fmt"
	"strings"

	"github.com/doli-systems/attachment-gateway/internal/filename"
	"github.com/doli-systems/attachment-gateway/internal/models"
)

// AllowedSet is the merged set of extensions a batch is checked against:
// the reserved extensions plus whatever the deployment configured.
type AllowedSet struct {
	members map[string]struct{}
	// label-visible entries, in insertion order, deduplicated
	labelled []string
}

// ParseAllowed parses the free-text extension configuration and merges it
// with the reserved set. Tokens split on whitespace or commas, a leading dot
// is stripped, case is normalized to lower. An empty configuration yields
// exactly the reserved set.
func ParseAllowed(config string) AllowedSet {
	set := AllowedSet{members: make(map[string]struct{})}
	for _, ext := range filename.Reserved() {
		set.members[ext] = struct{}{}
	}
	// The synthetic numeric range is kept out of the visible label so the
	// user is not shown a thousand tokens.
	set.labelled = append(set.labelled, filename.ReservedLabelled()...)

	for _, token := range strings.FieldsFunc(config, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}) {
		ext := strings.ToLower(strings.TrimPrefix(token, "."))
		if ext == "" {
			continue
		}
		if _, dup := set.members[ext]; dup {
			continue
		}
		set.members[ext] = struct{}{}
		set.labelled = append(set.labelled, ext)
	}
	return set
}

// Contains reports whether ext (any case) is allowed.
func (s AllowedSet) Contains(ext string) bool {
	_, ok := s.members[strings.ToLower(ext)]
	return ok
}

// Label renders the upper-cased, comma-joined list shown to the user when a
// file is rejected. Synthetic reserved entries are excluded.
func (s AllowedSet) Label() string {
	parts := make([]string, 0, len(s.labelled))
	for _, ext := range s.labelled {
		parts = append(parts, strings.ToUpper(ext))
	}
	return strings.Join(parts, ", ")
}

// PartitionByExtension splits files into those whose extension is allowed and
// those that are not. Rejection of one file never affects its siblings.
func PartitionByExtension(files []models.IncomingFile, allowed AllowedSet) (accepted, rejected []models.IncomingFile) {
	for _, f := range files {
		if allowed.Contains(filename.Ext(f.Name)) {
			accepted = append(accepted, f)
		} else {
			rejected = append(rejected, f)
		}
	}
	return accepted, rejected
}

// RejectionMessage builds the toast text naming each rejected file and the
// accepted types label.
func RejectionMessage(rejected []models.IncomingFile, allowed AllowedSet) string {
	names := quoteNames(rejected)
	if len(rejected) == 1 {
		return fmt.Sprintf("File %s is not allowed. Accepted types: %s.", names, allowed.Label())
	}
	return fmt.Sprintf("Files %s are not allowed. Accepted types: %s.", names, allowed.Label())
}

func quoteNames(files []models.IncomingFile) string {
	quoted := make([]string, 0, len(files))
	for _, f := range files {
		quoted = append(quoted, `"`+f.Name+`"`)
	}
	return strings.Join(quoted, ", ")
}
