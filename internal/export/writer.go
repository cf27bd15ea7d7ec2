package export

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

func writeFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileSystemError("failed to create page directory").
			WithCause(err).WithContext("path", dir).Build()
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return errors.FileSystemError("failed to write page file").
			WithCause(err).WithContext("path", target).Build()
	}
	return nil
}
