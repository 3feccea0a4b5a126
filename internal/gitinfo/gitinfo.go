// Package gitinfo reads repository details from the working copy.
package gitinfo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DefaultRemote is the remote whose URL identifies the repository.
const DefaultRemote = "origin"

// Info is what could be detected. Fields are empty when unknown.
type Info struct {
	RemoteURL string
	Branch    string
}

// NormalizeRemoteURL rewrites scp-style remotes (git@github.com:acme/shop.git)
// as ssh:// URLs. Other values are returned unchanged.
func NormalizeRemoteURL(remote string) string {
	if remote == "" || strings.Contains(remote, "://") {
		return remote
	}
	hostPart, path, ok := strings.Cut(remote, ":")
	if !ok || len(hostPart) < 2 || path == "" || strings.Contains(hostPart, "/") {
		return remote
	}
	return "ssh://" + hostPart + "/" + strings.TrimPrefix(path, "/")
}

// Detect opens the repository containing path, searching parent directories,
// and reports the origin URL and the checked-out branch. A detached HEAD
// yields an empty branch.
func Detect(path string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Info{}, fmt.Errorf("failed to open git repository at %s: %w", path, err)
	}

	var info Info

	remote, err := repo.Remote(DefaultRemote)
	switch {
	case err == nil:
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.RemoteURL = NormalizeRemoteURL(urls[0])
		}
	case !errors.Is(err, git.ErrRemoteNotFound):
		return Info{}, fmt.Errorf("failed to read remote %s: %w", DefaultRemote, err)
	}

	head, err := repo.Head()
	switch {
	case err == nil:
		if head.Name().IsBranch() {
			info.Branch = head.Name().Short()
		}
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// No commits yet: HEAD is symbolic to an unborn branch.
		ref, refErr := repo.Storer.Reference(plumbing.HEAD)
		if refErr == nil && ref.Type() == plumbing.SymbolicReference {
			info.Branch = ref.Target().Short()
		}
	default:
		return Info{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	return info, nil
}
