package lysbilde

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"k8s.io/klog/v2"
)

// detectViteTheme reports whether a theme directory needs an external build
// step: a package.json plus a vite config.
func detectViteTheme(dir string) bool {
	if !fileExists(filepath.Join(dir, "package.json")) {
		return false
	}
	for _, ext := range []string{"ts", "js", "mts", "mjs"} {
		if fileExists(filepath.Join(dir, "vite.config."+ext)) {
			return true
		}
	}
	return false
}

// buildViteTheme runs the theme's package-manager build and returns the
// dist/ directory it must produce.
func buildViteTheme(dir string) (string, error) {
	pm, err := findPackageManager(dir)
	if err != nil {
		return "", err
	}
	klog.Infof("building Vite theme %s with %s", dir, filepath.Base(pm))

	if !fileExists(filepath.Join(dir, "node_modules")) {
		if err := runTool(dir, pm, "install"); err != nil {
			return "", err
		}
	}
	if err := runTool(dir, pm, "run", "build"); err != nil {
		return "", err
	}

	dist := filepath.Join(dir, "dist")
	if fi, err := os.Stat(dist); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("build completed but dist/ not found at %s", dist)
	}
	return dist, nil
}

// findPackageManager picks a package manager, respecting the theme's
// lockfile when its manager is installed.
func findPackageManager(dir string) (string, error) {
	lockfiles := []struct{ lock, pm string }{
		{"bun.lockb", "bun"},
		{"pnpm-lock.yaml", "pnpm"},
		{"yarn.lock", "yarn"},
		{"package-lock.json", "npm"},
	}
	for _, l := range lockfiles {
		if fileExists(filepath.Join(dir, l.lock)) {
			if path, err := exec.LookPath(l.pm); err == nil {
				return path, nil
			}
		}
	}

	for _, pm := range []string{"bun", "pnpm", "npm", "yarn"} {
		if path, err := exec.LookPath(pm); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no package manager found; install Node.js (includes npm) or Bun to build Vite themes")
}

func runTool(dir, tool string, args ...string) error {
	cmd := exec.Command(tool, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v failed: %w\n%s", filepath.Base(tool), args, err, out)
	}
	return nil
}
