// Package absolutify rewrites relative image references in markdown
// documents into absolute URLs by uploading the referenced images to a
// remote store.
package absolutify

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"

	"github.com/santiagobasulto/markdown-tools/absolutify/imageref"
	"github.com/santiagobasulto/markdown-tools/absolutify/uploader"
)

// ProcessInput ...
type ProcessInput struct {
	SourcePath string
	OutputPath string
	// Override forces the upload even when the remote copy already exists.
	Override bool
}

// Processor runs the pipeline for single documents and for batches.
type Processor struct {
	uploader    uploader.Uploader
	pathChecker pathutil.PathChecker
	logger      log.Logger
}

func NewProcessor(uploader uploader.Uploader, pathChecker pathutil.PathChecker, logger log.Logger) *Processor {
	return &Processor{
		uploader:    uploader,
		pathChecker: pathChecker,
		logger:      logger,
	}
}

// Process uploads every relative image referenced by the source document
// and writes a copy of it with the references replaced by their public
// URLs, overwriting any previous file at the output path. The returned map
// associates each raw reference with its URL. A document without relative
// references produces an identical copy and an empty map.
func (p *Processor) Process(ctx context.Context, input ProcessInput) (map[string]string, error) {
	content, err := os.ReadFile(input.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	text := string(content)

	refs := imageref.Extract(text)
	resolved, err := p.resolve(refs, filepath.Dir(input.SourcePath))
	if err != nil {
		return nil, err
	}

	up := p.uploader
	if scoper, ok := up.(uploader.DocumentScoper); ok {
		up, err = scoper.ForDocument(input.SourcePath)
		if err != nil {
			return nil, err
		}
	}

	results := make(map[string]string, len(refs))
	for _, ref := range refs {
		remoteURL, err := up.Upload(ctx, resolved[ref], input.Override)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", ref, err)
		}
		results[ref] = remoteURL
	}

	text = imageref.Substitute(text, results)
	if err := os.WriteFile(input.OutputPath, []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	return results, nil
}

// resolve maps each raw reference to an absolute path under the document's
// directory. Every missing image is collected before failing, so nothing is
// uploaded for a document that cannot complete.
func (p *Processor) resolve(refs []string, baseDir string) (map[string]string, error) {
	resolved := make(map[string]string, len(refs))
	var missing []string
	for _, ref := range refs {
		decoded, err := url.PathUnescape(ref)
		if err != nil {
			decoded = ref
		}
		absPath := filepath.Join(baseDir, decoded)
		exists, err := p.pathChecker.IsPathExists(absPath)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", absPath, err)
		}
		if !exists {
			missing = append(missing, absPath)
			continue
		}
		resolved[ref] = absPath
	}
	if len(missing) > 0 {
		return nil, &MissingImagesError{Paths: missing}
	}
	return resolved, nil
}
