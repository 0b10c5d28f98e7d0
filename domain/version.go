package domain

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// repositoryURLPattern matches HTTPS GitHub repository URLs, with or without
// the trailing ".git".
var repositoryURLPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+?)(?:\.git)?$`)

// ParseRepositoryURL extracts the owner/name identifier from a repository
// URL. Returns ErrInvalidRepositoryURL when the URL does not match.
func ParseRepositoryURL(url string) (RepoID, error) {
	match := repositoryURLPattern.FindStringSubmatch(url)
	if match == nil {
		return RepoID{}, fmt.Errorf("%w: %s", ErrInvalidRepositoryURL, url)
	}
	return RepoID{Owner: match[1], Name: match[2]}, nil
}

// LatestNewerTag scans tags for the greatest semantic version strictly newer
// than baseline and returns that tag. Tags that do not parse as semantic
// versions (branch-like tags such as "main" or "team/stable") are skipped.
// When nothing newer exists, or baseline itself does not parse, the baseline
// is returned unchanged as a no-op sentinel. On equal maximum versions the
// first tag encountered wins.
func LatestNewerTag(tags []string, baseline string) string {
	base, err := semver.NewVersion(baseline)
	if err != nil {
		return baseline
	}

	var best *semver.Version
	bestTag := baseline

	for _, tag := range tags {
		v, parseErr := semver.NewVersion(tag)
		if parseErr != nil {
			continue
		}
		if !v.GreaterThan(base) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestTag = tag
		}
	}

	return bestTag
}

// ContainsTag reports whether tag is present in tags. The reconciliation
// service skips dependencies whose pinned version is not among the remote
// tags: freshness cannot be verified against a tag the host no longer
// reports.
func ContainsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
