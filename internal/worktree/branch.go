// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"regexp"
	"strconv"
	"strings"
)

const maxSlugLen = 50

var (
	nonAlnumRun  = regexp.MustCompile(`[^a-z0-9]+`)
	issuePrefix  = regexp.MustCompile(`^(\d+)-`)
)

// BranchName derives a session branch name from an issue number and title:
// "{issueNumber}-{slug}". The slug is the lower-cased title with runs of
// non-alphanumeric characters collapsed to single hyphens, trimmed,
// truncated to 50 characters, with "issue" as the fallback for titles that
// clean down to nothing.
func BranchName(issueNumber int, title string) string {
	slug := strings.ToLower(title)
	slug = nonAlnumRun.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
		slug = strings.TrimRight(slug, "-")
	}
	if slug == "" {
		slug = "issue"
	}
	return strconv.Itoa(issueNumber) + "-" + slug
}

// IssueNumber parses the issue number back out of a session branch name.
// A branch matches only if it starts with digits followed by a hyphen.
func IssueNumber(branch string) (int, bool) {
	m := issuePrefix.FindStringSubmatch(branch)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
