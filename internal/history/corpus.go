package history

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/FocuswithJustin/loxoracle/core/errors"
)

// CorpusCommit returns the commit checked out in the git repository that
// contains dir, or "" when dir is not inside a repository or the repository
// has no commits yet.
func CorpusCommit(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("git open %s: %w", dir, err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("git head %s: %w", dir, err)
	}
	return head.Hash().String(), nil
}
