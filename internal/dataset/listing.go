package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Listing selects how sample files are discovered in the data directory.
type Listing string

const (
	// ListingSorted takes every supported sample file, sorted by name.
	ListingSorted Listing = "sorted"
	// ListingGlob expands a glob pattern and sorts the matches.
	ListingGlob Listing = "glob"

	DefaultGlobPattern = "*.npy"
)

func ParseListing(s string) (Listing, error) {
	switch Listing(strings.ToLower(strings.TrimSpace(s))) {
	case ListingSorted, "":
		return ListingSorted, nil
	case ListingGlob:
		return ListingGlob, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidListing, s)
}

// ListSampleFiles returns sample file names (not paths) under dir in a
// stable order, so index i always names the same file.
func ListSampleFiles(dir string, listing Listing, pattern string) ([]string, error) {
	var names []string
	switch listing {
	case ListingSorted, "":
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		names = lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
			return e.Name(), e.Type().IsRegular() && IsSampleFile(e.Name())
		})
	case ListingGlob:
		if pattern == "" {
			pattern = DefaultGlobPattern
		}
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %v", ErrInvalidListing, pattern, err)
		}
		names = lo.Map(matches, func(p string, _ int) string {
			return filepath.Base(p)
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidListing, listing)
	}

	slices.Sort(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSamples, dir)
	}
	return names, nil
}
