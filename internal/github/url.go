package github

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRepoURL extracts owner and repository name from a GitHub URL.
// Accepted forms: https://github.com/o/r(.git), github.com/o/r, git@github.com:o/r.git
// and the bare "o/r" shorthand.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("github: repository url required")
	}

	if strings.HasPrefix(raw, "git@github.com:") {
		owner, repo, ok := splitOwnerRepo(strings.TrimPrefix(raw, "git@github.com:"))
		if !ok {
			return "", "", fmt.Errorf("github: invalid repository url %q", raw)
		}
		return owner, repo, nil
	}

	if !strings.Contains(raw, "://") {
		if strings.HasPrefix(strings.ToLower(raw), "github.com/") || strings.HasPrefix(strings.ToLower(raw), "www.github.com/") {
			raw = "https://" + raw
		} else if owner, repo, ok := splitOwnerRepo(raw); ok && strings.Count(strings.Trim(raw, "/"), "/") == 1 {
			return owner, repo, nil
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("github: invalid repository url: %w", err)
	}
	host := strings.ToLower(strings.TrimSpace(u.Host))
	if host != "github.com" && host != "www.github.com" {
		return "", "", fmt.Errorf("github: only github.com repositories are supported")
	}
	owner, repo, ok := splitOwnerRepo(u.Path)
	if !ok {
		return "", "", fmt.Errorf("github: invalid repository url %q", raw)
	}
	return owner, repo, nil
}

// NormalizeRepoURL strips trailing slashes, a ".git" suffix, query
// parameters and fragments so equivalent URLs share a cache key.
func NormalizeRepoURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	for {
		prev := s
		s = strings.TrimRight(s, "/")
		s = strings.TrimSuffix(s, ".git")
		if s == prev {
			break
		}
	}
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		return u.String()
	}
	return s
}

func splitOwnerRepo(repoPath string) (owner, repo string, ok bool) {
	repoPath = strings.Trim(repoPath, "/")
	parts := strings.Split(repoPath, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".git")
	if owner == "" || repo == "" {
		return "", "", false
	}
	return owner, repo, true
}
