// Package confkit holds the configuration plumbing shared by the entry points:
// .env bootstrap, project-relative paths, and sub-files referenced from the
// main config.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/conf"
)

// ResolvePath expands environment variables in file and, when the result is
// relative, joins it to base.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory of the main config file.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// LoadFile loads a go-zero style config file into a new T.
func LoadFile[T any](path string, useEnv bool) (*T, error) {
	var cfg T
	var opts []conf.Option
	if useEnv {
		opts = append(opts, conf.UseEnv())
	}
	if err := conf.Load(path, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// Section is a config block stored in its own file. File is resolved relative
// to the main config; Value holds the parsed result after Hydrate.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File with loader. An empty File is a no-op.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return err
	}
	s.File, s.Value = p, v
	return nil
}

// Expand substitutes ${VAR} references and trims the result.
func Expand(s string) string {
	return strings.TrimSpace(os.ExpandEnv(s))
}

// ParseDuration expands and parses raw. An empty value yields (nil, nil) so
// callers can tell "unset" from "0s".
func ParseDuration(raw string) (*time.Duration, error) {
	raw = Expand(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
