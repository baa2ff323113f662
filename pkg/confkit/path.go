package confkit

import (
	"os"
	"path/filepath"
	"runtime"
)

const maxRootDepth = 8

// walkUp calls visit for this source file's directory and each parent, up to
// the first directory holding go.mod or .git. It reports that directory.
func walkUp(visit func(dir string)) (string, bool) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", false
	}
	dir := filepath.Dir(file)
	for i := 0; i < maxRootDepth; i++ {
		if visit != nil {
			visit(dir)
		}
		if isFile(filepath.Join(dir, "go.mod")) || isFile(filepath.Join(dir, ".git")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func isFile(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}
