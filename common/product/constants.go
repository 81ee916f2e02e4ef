/*
 * === This file is part of OBiBa Onyx ===
 *
 * Copyright 2026 OBiBa and copyright holders of Onyx.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package product holds the product name and version, filled in by the
// linker or, for development builds, from the VERSION file and git HEAD.
package product

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

func getExecutableDir() string {
	ex, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(ex)
}

// parseVersionFile reads Makefile-style "VERSION_MAJOR := 1" lines.
func parseVersionFile(versionFilePath string) map[string]string {
	f, err := os.Open(versionFilePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VERSION_") {
			continue
		}
		key, value, found := strings.Cut(line, ":=")
		if !found {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out
}

// buildFromGit is the equivalent of git rev-parse --short HEAD, best effort.
func buildFromGit(localRepoPath string) string {
	r, err := git.PlainOpenWithOptions(localRepoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	h, err := r.ResolveRevision(plumbing.Revision("HEAD"))
	if err != nil {
		return ""
	}
	return h.String()[:7]
}

func init() {
	if VERSION_MAJOR == "0" && VERSION_MINOR == "0" && VERSION_PATCH == "0" && BUILD == "" {
		basePath := filepath.Dir(getExecutableDir())
		if kv := parseVersionFile(filepath.Join(basePath, "VERSION")); kv != nil {
			if v, ok := kv["VERSION_MAJOR"]; ok {
				VERSION_MAJOR = v
			}
			if v, ok := kv["VERSION_MINOR"]; ok {
				VERSION_MINOR = v
			}
			if v, ok := kv["VERSION_PATCH"]; ok {
				VERSION_PATCH = v
			}
		}
		BUILD = buildFromGit(basePath)
	}

	VERSION = strings.Join([]string{VERSION_MAJOR, VERSION_MINOR, VERSION_PATCH}, ".")
	VERSION_BUILD = VERSION
	if len(BUILD) > 0 {
		VERSION_BUILD = strings.Join([]string{VERSION, BUILD}, "-")
	}
}

var ( // set with -ldflags="-X=..."
	VERSION_MAJOR = "0"
	VERSION_MINOR = "0"
	VERSION_PATCH = "0"
	BUILD         = ""
)

var (
	NAME             = "onyx"
	PRETTY_SHORTNAME = "Onyx"
	PRETTY_FULLNAME  = "Onyx Participant Interview Workflow"
	VERSION          string
	VERSION_BUILD    string
)
