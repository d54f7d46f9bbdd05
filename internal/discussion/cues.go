package discussion

import "regexp"

var conclusionCue = regexp.MustCompile(`(?i)\b(?:i(?:'d|’d| would) like to conclude|let me conclude|let(?:'s| us) conclude|to conclude|in conclusion|to sum up|to summari[sz]e|summing up|let(?:'s| us) wrap up)\b`)

// IsConclusionCue reports whether text signals that the speaker wants to conclude.
func IsConclusionCue(text string) bool {
	return conclusionCue.MatchString(text)
}
