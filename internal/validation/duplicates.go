package validation

import (
	"fmt"
	"strings"

	"github.com/doli-systems/attachment-gateway/internal/filename"
	"github.com/doli-systems/attachment-gateway/internal/models"
)

// PartitionByDuplicate splits files into those not yet attached and those
// that collide with an existing preview. Known names are the stored (encoded)
// names when present, else display names; incoming names are encoded the same
// way before comparing, so result.025 collides with a previously uploaded
// result#$025.DOLI.
func PartitionByDuplicate(files []models.IncomingFile, existing []models.Preview) (unique, duplicates []models.IncomingFile) {
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		name := p.StoredName
		if name == "" {
			name = p.DisplayName
		}
		known[strings.ToLower(name)] = struct{}{}
	}
	for _, f := range files {
		encoded := strings.ToLower(filename.Encode(f.Name))
		if _, dup := known[encoded]; dup {
			duplicates = append(duplicates, f)
		} else {
			unique = append(unique, f)
		}
	}
	return unique, duplicates
}

// DuplicateMessage builds the toast text naming each duplicate file.
func DuplicateMessage(duplicates []models.IncomingFile) string {
	names := quoteNames(duplicates)
	if len(duplicates) == 1 {
		return fmt.Sprintf("File %s is already attached. Duplicate files are not allowed.", names)
	}
	return fmt.Sprintf("Files %s are already attached. Duplicate files are not allowed.", names)
}
