package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// chunkSize and chunkOverlap are the splitter parameters for all ingested
// content. Chunks around this size embed well with the small local models
// this system targets.
const (
	chunkSize    = 500
	chunkOverlap = 20
)

func newSplitter(size, overlap int) textsplitter.RecursiveCharacter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
}

// loadFile reads and splits one file, choosing the loader by extension.
// Returns ErrUnsupportedFormat for extensions with no loader.
func loadFile(ctx context.Context, path string, splitter textsplitter.TextSplitter) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var loader documentloaders.Loader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		loader = documentloaders.NewText(f)
	case ".csv":
		loader = documentloaders.NewCSV(f)
	case ".html", ".htm":
		loader = documentloaders.NewHTML(f)
	case ".pdf":
		info, statErr := f.Stat()
		if statErr != nil {
			return nil, statErr
		}
		loader = documentloaders.NewPDF(f, info.Size())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	return loader.LoadAndSplit(ctx, splitter)
}

// loadURL fetches a page and splits its HTML content.
func loadURL(ctx context.Context, client *http.Client, url string, splitter textsplitter.TextSplitter) ([]schema.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetchFailed, url, resp.Status)
	}

	return documentloaders.NewHTML(resp.Body).LoadAndSplit(ctx, splitter)
}

// loadText splits raw text content, for callers that already hold the bytes
// (uploads).
func loadText(ctx context.Context, content string, splitter textsplitter.TextSplitter) ([]schema.Document, error) {
	return documentloaders.NewText(strings.NewReader(content)).LoadAndSplit(ctx, splitter)
}
