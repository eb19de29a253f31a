package port

import "context"

// FileStorage abstracts where document files live
type FileStorage interface {
	// Save writes content to the specified relative path
	Save(ctx context.Context, path string, content []byte) error

	// Read retrieves content from the specified relative path
	Read(ctx context.Context, path string) ([]byte, error)

	// Delete removes the file at the specified relative path
	Delete(ctx context.Context, path string) error

	// Exists checks whether a file exists at the relative path
	Exists(ctx context.Context, path string) (bool, error)

	// GetFullPath resolves a relative path to an absolute one
	GetFullPath(path string) string
}
