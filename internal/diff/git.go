package diff

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// GitDiff runs `git diff` with the given arguments and returns the raw output.
func GitDiff(repoDir string, args ...string) (string, error) {
	cmdArgs := append([]string{"diff"}, args...)
	cmd := exec.Command("git", cmdArgs...)
	cmd.Dir = repoDir
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}

	return string(out), nil
}

// GitDiffStaged returns the diff of the index against HEAD.
func GitDiffStaged(repoDir string, contextLines int) (string, error) {
	return GitDiff(repoDir, fmt.Sprintf("-U%d", contextLines), "--cached")
}

// GitDiffCommit returns the diff introduced by a single commit.
func GitDiffCommit(repoDir, ref string, contextLines int) (string, error) {
	return GitDiff(repoDir, fmt.Sprintf("-U%d", contextLines), ref+"~1", ref)
}

// GitDiffRange returns the diff for a commit range like "main...HEAD".
func GitDiffRange(repoDir, commitRange string, contextLines int) (string, error) {
	return GitDiff(repoDir, fmt.Sprintf("-U%d", contextLines), commitRange)
}

// GitRepoRoot returns the top-level directory of the enclosing repository.
func GitRepoRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GitBranch returns the current branch name, or "" in detached HEAD state.
func GitBranch(repoDir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	name := strings.TrimSpace(string(out))
	if name == "HEAD" {
		return "", nil
	}
	return name, nil
}

// GitCommitMessage returns the full commit message for a ref.
func GitCommitMessage(repoDir, ref string) (string, error) {
	cmd := exec.Command("git", "log", "-1", "--format=%B", ref)
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git log %s: %w", ref, err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// GitRevList returns the commit SHAs in a range, oldest first.
func GitRevList(repoDir, commitRange string) ([]string, error) {
	cmd := exec.Command("git", "rev-list", "--reverse", commitRange)
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git rev-list %s: %w", commitRange, err)
	}
	var shas []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			shas = append(shas, line)
		}
	}
	return shas, nil
}
