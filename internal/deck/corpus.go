package deck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrNoImages = errors.New("no images found")

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// LoadDir lists the image files in dir as cards, sorted by path.
func LoadDir(dir string) ([]Card, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory %s does not exist", ErrNoImages, dir)
		}
		return nil, fmt.Errorf("reading card directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in directory %s", ErrNoImages, dir)
	}
	sort.Strings(paths)

	cards := make([]Card, len(paths))
	for i, p := range paths {
		cards[i] = Card(p)
	}
	return cards, nil
}
