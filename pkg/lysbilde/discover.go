package lysbilde

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// ErrNoPhotos is returned when discovery finds an empty photo tree.
var ErrNoPhotos = errors.New("no photos found")

// Discover walks photosDir and builds the album tree. Albums mirror the
// directory hierarchy; hidden entries are skipped, empty albums are pruned,
// and an entirely empty tree is an error.
func Discover(photosDir string) (*Album, error) {
	abs, err := filepath.Abs(photosDir)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("photos directory: %w", err)
	}

	root := &Album{Name: "Gallery", Slug: "", Path: ""}
	albums := map[string]*Album{"": root}

	err = godirwalk.Walk(abs, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == abs {
				return nil
			}
			base := filepath.Base(path)
			if strings.HasPrefix(base, ".") {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}

			rel, err := filepath.Rel(abs, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if de.IsDir() {
				albums[rel] = &Album{
					Name: titlecase(base),
					Slug: strings.ToLower(base),
					Path: rel,
				}
				return nil
			}

			p := newPhoto(path)
			if p == nil {
				klog.V(2).Infof("skipping non-image %s", path)
				return nil
			}

			parent := albums[filepath.ToSlash(filepath.Dir(rel))]
			if parent == nil {
				parent = root
			}
			parent.Photos = append(parent.Photos, p)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", abs, err)
	}

	// Attach children to parents, deepest first so counts propagate.
	paths := make([]string, 0, len(albums))
	for p := range albums {
		if p != "" {
			paths = append(paths, p)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	for _, p := range paths {
		a := albums[p]
		parentPath := ""
		if i := strings.LastIndex(p, "/"); i >= 0 {
			parentPath = p[:i]
		}
		parent := albums[parentPath]
		if parent == nil {
			parent = root
		}
		if a.PhotoCount() > 0 {
			parent.Children = append(parent.Children, a)
		}
	}

	sortAlbum(root)

	if root.PhotoCount() == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPhotos, abs)
	}

	klog.Infof("discovered %d photos in %d albums under %s",
		root.PhotoCount(), len(root.AllAlbums()), abs)
	return root, nil
}

// sortAlbum orders photos by stem and children by slug so builds are
// deterministic.
func sortAlbum(a *Album) {
	sort.Slice(a.Photos, func(i, j int) bool { return a.Photos[i].Stem < a.Photos[j].Stem })
	sort.Slice(a.Children, func(i, j int) bool { return a.Children[i].Slug < a.Children[j].Slug })
	for _, c := range a.Children {
		sortAlbum(c)
	}
}
