package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/openclaw/lily/internal/domain"
)

// Root returns the fixed directory every store file must resolve under:
// <home>/.openclaw/memory/.
func Root() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", domain.NewDomainError(domain.ErrCodePathTraversal, "cannot resolve home directory", err)
	}
	return filepath.Join(home, ".openclaw", "memory"), nil
}

// ResolvePath expands a leading "~" to the home directory and verifies the
// result resolves under Root(). Any other resolution fails with a
// path-traversal error.
func ResolvePath(path string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", domain.NewDomainError(domain.ErrCodePathTraversal, "cannot resolve home directory", err)
	}
	if path == "~" {
		path = home
	} else if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		path = filepath.Join(home, path[2:])
	}

	root, err := Root()
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", domain.NewDomainError(domain.ErrCodePathTraversal, "cannot resolve absolute path", err)
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", domain.NewDomainError(domain.ErrCodePathTraversal, "cannot resolve root", err)
	}

	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", domain.NewDomainError(domain.ErrCodePathTraversal, "path "+path+" resolves outside the memory root", nil)
	}

	return abs, nil
}

// sanitizeValue strips NUL bytes and caps length at 10,000 characters
// before a value is bound into a query. Parameter binding is the sole
// SQL-injection defense; this pass only guards against corrupt/oversized
// input reaching the database.
func sanitizeValue(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	const maxLen = 10000
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
