package source

import (
	"context"
	"fmt"
	"os"

	"github.com/rmax-ai/schemabuilder/pkg/graph"
)

// FileSource reads the vocabulary document from a local file on every fetch.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) FetchWithOrigin(ctx context.Context) ([]graph.Node, Origin, error) {
	if err := ctx.Err(); err != nil {
		return nil, OriginFile, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, OriginFile, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer f.Close()

	nodes, err := ReadDocument(f)
	if err != nil {
		return nil, OriginFile, fmt.Errorf("%w: %s: %v", ErrFetchFailed, s.path, err)
	}
	return nodes, OriginFile, nil
}
