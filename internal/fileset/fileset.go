// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fileset expands shell-style file patterns into lists of files.
//
// A pattern may use '*', '?', '[seq]' and '[!seq]' in its base name.
// Matching files of the pattern's directory are returned in sorted order.
package fileset // import "github.com/go-lpc/gem/internal/fileset"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoMatch is returned when a pattern matches no file.
var ErrNoMatch = errors.New("fileset: no matching file")

// IsPattern reports whether name holds any pattern meta-character.
func IsPattern(name string) bool {
	return strings.ContainsAny(name, "*?[")
}

// Expand returns the files matching the pattern.
// A name without meta-character must refer to an existing file.
func Expand(pattern string) ([]string, error) {
	name, err := expandHome(pattern)
	if err != nil {
		return nil, err
	}

	if !IsPattern(name) {
		_, err := os.Stat(name)
		if err != nil {
			return nil, fmt.Errorf("fileset: input file %q does not exist: %w", name, err)
		}
		return []string{name}, nil
	}

	var (
		dir  = filepath.Dir(name)
		base = translate(filepath.Base(name))
	)
	if IsPattern(dir) {
		return nil, fmt.Errorf("fileset: patterns are only supported in the file name (dir=%q)", dir)
	}

	// validate the pattern, even for empty directories.
	if _, err := filepath.Match(base, ""); err != nil {
		return nil, fmt.Errorf("fileset: invalid pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fileset: could not read directory %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(base, e.Name())
		if err != nil {
			return nil, fmt.Errorf("fileset: invalid pattern %q: %w", pattern, err)
		}
		if ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("fileset: could not expand %q: %w", pattern, ErrNoMatch)
	}
	return files, nil
}

// ExpandAll expands every pattern and concatenates the results.
func ExpandAll(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		vs, err := Expand(p)
		if err != nil {
			return nil, err
		}
		files = append(files, vs...)
	}
	return files, nil
}

func expandHome(name string) (string, error) {
	if name != "~" && !strings.HasPrefix(name, "~/") {
		return name, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("fileset: could not find home directory: %w", err)
	}
	return filepath.Join(home, name[1:]), nil
}

// translate converts a shell pattern into a filepath.Match pattern:
// '[!' negations become '[^' and backslashes are literal.
func translate(pattern string) string {
	var (
		o     strings.Builder
		class = false
	)
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			o.WriteString(`\\`)
			continue
		case c == '[' && !class:
			class = true
			o.WriteByte(c)
			if i+1 < len(pattern) && pattern[i+1] == '!' {
				o.WriteByte('^')
				i++
			}
			continue
		case c == ']' && class:
			class = false
		}
		o.WriteByte(c)
	}
	return o.String()
}
