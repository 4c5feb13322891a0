package loader

import (
	"fmt"
	"strings"
)

// ImportNotFoundError reports an import that no search directory nor the
// literal path resolves.
type ImportNotFoundError struct {
	Path        string
	SearchPaths []string
}

func (e *ImportNotFoundError) Error() string {
	if len(e.SearchPaths) == 0 {
		return fmt.Sprintf("'%s' not found.", e.Path)
	}
	return fmt.Sprintf("'%s' not found in import path %s.", e.Path, strings.Join(e.SearchPaths, ", "))
}

// ImportCycleError reports a file that imports itself, directly or through
// other imports. Chain starts and ends with the same file.
type ImportCycleError struct {
	Chain []string
}

func (e *ImportCycleError) Error() string {
	return "import cycle: " + strings.Join(e.Chain, " -> ")
}
