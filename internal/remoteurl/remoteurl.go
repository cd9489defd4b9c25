// Package remoteurl compares git remote URLs by the repository they address
// rather than by their spelling.
package remoteurl

import (
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
	"ssh":   22,
	"git":   9418,
}

// Normalize returns a canonical form of raw: protocol, lower-cased host,
// explicit non-default port and path without trailing slashes or ".git".
// Credentials are dropped. The user of ssh URLs is kept since it selects the
// account on the server.
func Normalize(raw string) (string, error) {
	ep, err := transport.NewEndpoint(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	p := strings.TrimRight(ep.Path, "/")
	p = strings.TrimSuffix(p, ".git")
	p = strings.TrimRight(p, "/")

	if ep.Protocol == "file" {
		return "file://" + p, nil
	}
	p = strings.TrimLeft(p, "/")

	host := strings.ToLower(ep.Host)
	if ep.Port != 0 && ep.Port != defaultPorts[ep.Protocol] {
		host += ":" + strconv.Itoa(ep.Port)
	}

	user := ""
	if ep.Protocol == "ssh" && ep.User != "" {
		user = ep.User + "@"
	}

	return ep.Protocol + "://" + user + host + "/" + p, nil
}

// Equal reports whether a and b address the same repository. URLs that cannot
// be parsed are compared verbatim after trimming.
func Equal(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return na == nb
}
