package shorts

import (
	"net/url"
	"regexp"
	"strings"
)

var bareIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoID accepts a bare 11-char ID or a watch, shorts, embed or
// youtu.be URL and returns the ID.
func ParseVideoID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if bareIDRe.MatchString(s) {
		return s, true
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}

	var id string
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case host == "youtu.be":
		id = parts[0]
	case host == "youtube.com" || host == "m.youtube.com":
		switch parts[0] {
		case "watch":
			id = u.Query().Get("v")
		case "shorts", "embed", "live":
			if len(parts) > 1 {
				id = parts[1]
			}
		}
	}
	if !bareIDRe.MatchString(id) {
		return "", false
	}
	return id, true
}
