package utils

import (
	"net/url"
	"path"
	"strings"
)

// MatchURL reports whether targetURL equals one of the patterns or matches
// one by scheme, host and a path.Match glob on the path.
func MatchURL(patternURLs []string, targetURL string) bool {
	parsedTarget, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	for _, patternURL := range patternURLs {
		patternURL = strings.TrimSpace(patternURL)
		if patternURL == targetURL {
			return true
		}
		parsedPattern, errParse := url.Parse(patternURL)
		if errParse != nil {
			continue
		}
		if parsedPattern.Scheme != parsedTarget.Scheme || parsedPattern.Host != parsedTarget.Host {
			continue
		}
		matched, errMatch := path.Match(parsedPattern.Path, parsedTarget.Path)
		if errMatch == nil && matched {
			return true
		}
	}
	return false
}
