package absolutify

import (
	"fmt"
	"strings"
)

// MissingImagesError is returned when a document references images that do
// not exist on disk. It carries every missing resolved path; the document
// is rejected before any upload starts.
type MissingImagesError struct {
	Paths []string
}

func (e *MissingImagesError) Error() string {
	return fmt.Sprintf("missing images: %s", strings.Join(e.Paths, ", "))
}
