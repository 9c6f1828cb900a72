// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package devcontainer

import (
	"regexp"
	"strconv"
)

// boundPortPattern extracts host ports from the runtime's port-mapping
// text, e.g. "0.0.0.0:3000->3000/tcp, :::3000->3000/tcp" or "5432/tcp".
var boundPortPattern = regexp.MustCompile(`(\d+)(?:->|/)`)

// ParseBoundPorts parses `docker ps --format {{.Ports}}` output into the
// set of ports currently bound by running containers.
func ParseBoundPorts(output string) map[int]bool {
	bound := make(map[int]bool)
	for _, match := range boundPortPattern.FindAllStringSubmatch(output, -1) {
		if port, err := strconv.Atoi(match[1]); err == nil {
			bound[port] = true
		}
	}
	return bound
}
