package generate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

func WriteFiles(fs afero.Fs, outputs []OutputFile) error {
	for _, file := range outputs {
		if err := fs.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", filepath.Dir(file.Path), err)
		}
		if err := afero.WriteFile(fs, file.Path, file.Content, 0o644); err != nil {
			return fmt.Errorf("write file %s: %w", file.Path, err)
		}
	}
	return nil
}

// CheckFiles returns the paths of outputs that are missing on disk or whose
// content differs.
func CheckFiles(fs afero.Fs, outputs []OutputFile) ([]string, error) {
	var stale []string
	for _, file := range outputs {
		content, err := afero.ReadFile(fs, file.Path)
		if os.IsNotExist(err) {
			stale = append(stale, file.Path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", file.Path, err)
		}
		if !bytes.Equal(content, file.Content) {
			stale = append(stale, file.Path)
		}
	}
	return stale, nil
}
