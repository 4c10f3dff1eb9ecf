package absolutify

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/santiagobasulto/markdown-tools/absolutify/uploader"
)

type fakeUploader struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, localPath string, override bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, localPath)
	return "https://cdn.example.com/" + filepath.Base(localPath), nil
}

func (f *fakeUploader) uploadCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

type fakeScopedUploader struct {
	fakeUploader
	scopedDocs []string
}

func (f *fakeScopedUploader) ForDocument(docPath string) (uploader.Uploader, error) {
	f.mu.Lock()
	f.scopedDocs = append(f.scopedDocs, docPath)
	f.mu.Unlock()
	return f, nil
}
