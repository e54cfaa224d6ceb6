package gatekeeper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

var ErrNoToken = errors.New("no token found")

// ReadToken returns the trimmed contents of the first non-empty file in
// paths. Missing files are skipped; other read errors are returned.
func ReadToken(paths []string) (string, error) {
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read token %s: %w", p, err)
		}
		if t := strings.TrimSpace(string(b)); t != "" {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w in: %v", ErrNoToken, paths)
}
