// Package gitrepo reads repository coordinates from a local git checkout.
package gitrepo

import (
	stderrors "errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

// DefaultRemote is the remote whose first URL is used as the repository URL.
const DefaultRemote = "origin"

// Info describes the checked-out state of a local repository.
type Info struct {
	URL    string // first URL of the default remote, empty when there is none
	Branch string // short branch name, empty on a detached HEAD
	Head   string // commit hash of HEAD
}

// Inspect opens the repository containing path and reports its remote URL, branch and head.
func Inspect(path string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Info{}, errors.GitError("failed to open repository").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	var info Info
	head, err := repo.Head()
	switch {
	case err == nil:
		info.Head = head.Hash().String()
		if head.Name().IsBranch() {
			info.Branch = head.Name().Short()
		}
	case stderrors.Is(err, plumbing.ErrReferenceNotFound):
		// Unborn branch: HEAD points at a branch with no commits yet.
		if ref, refErr := repo.Storer.Reference(plumbing.HEAD); refErr == nil && ref.Type() == plumbing.SymbolicReference {
			info.Branch = ref.Target().Short()
		}
	default:
		return Info{}, errors.GitError("failed to resolve HEAD").WithCause(err).WithContext("path", path).Build()
	}

	remote, err := repo.Remote(DefaultRemote)
	switch {
	case err == nil:
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.URL = urls[0]
		}
	case stderrors.Is(err, git.ErrRemoteNotFound):
	default:
		return Info{}, errors.GitError("failed to read remote").WithCause(err).WithContext("remote", DefaultRemote).Build()
	}
	return info, nil
}

// FillRepo returns repo with URL and Branch taken from the checkout at repo.Path when
// they are empty. Explicit values always win. Without a path repo is returned as is,
// with the default branch applied.
func FillRepo(repo config.RepoConfig) (config.RepoConfig, error) {
	if repo.Path != "" && (repo.URL == "" || repo.Branch == "") {
		info, err := Inspect(repo.Path)
		if err != nil {
			return repo, err
		}
		if repo.URL == "" {
			repo.URL = info.URL
		}
		if repo.Branch == "" {
			repo.Branch = info.Branch
		}
		if repo.URL == "" {
			return repo, errors.GitError("repository has no remote URL").
				WithContext("path", repo.Path).
				WithContext("remote", DefaultRemote).
				Build()
		}
	}
	if repo.Branch == "" {
		repo.Branch = config.DefaultBranch
	}
	return repo, nil
}
