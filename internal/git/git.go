// Package git shells out to the git binary for lightweight repository
// annotations shown alongside directory listings.
package git

import (
	"os/exec"
	"path/filepath"
	"strings"
)

// ModifiedFiles returns the set of paths git reports as changed under
// dir. Outside a repository (or without git installed) the set is
// empty.
func ModifiedFiles(dir string) map[string]bool {
	modified := make(map[string]bool)

	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	if err := cmd.Run(); err != nil {
		return modified
	}

	cmd = exec.Command("git", "status", "--porcelain")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return modified
	}

	for _, line := range strings.Split(string(output), "\n") {
		// Two status characters, a space, then the path.
		if len(line) > 3 {
			name := strings.TrimSpace(line[3:])
			if name != "" {
				modified[filepath.Join(dir, name)] = true
			}
		}
	}
	return modified
}

// Branch returns the checked-out branch name, or "" outside a
// repository.
func Branch(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
