package orchestrator

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Limits for fetchProfile.
const (
	DefaultProfileLimit = 10
	MaxProfileLimit     = 100
)

// Validation errors. They are wrapped in an InvalidInput TaskError by Run.
var (
	ErrMissingURL   = errors.New("url is required")
	ErrInvalidURL   = errors.New("url must be an http(s) link")
	ErrNoPostID     = errors.New("could not find a note id in the link")
	ErrNoUserID     = errors.New("could not find a user id in the link")
	ErrLimitOutside = fmt.Errorf("limit must be between 1 and %d", MaxProfileLimit)
)

var (
	postIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:explore|discovery/item)/([a-zA-Z0-9]+)`),
		regexp.MustCompile(`xhslink\.com/([a-zA-Z0-9]+)`),
		regexp.MustCompile(`/([a-zA-Z0-9]{24})`),
	}
	userIDPattern = regexp.MustCompile(`/user/profile/([a-zA-Z0-9]+)`)
)

// ValidateURL checks that raw is an absolute http or https URL.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrMissingURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// PostID extracts the note id from a note link or short link.
func PostID(link string) (string, error) {
	for _, re := range postIDPatterns {
		if m := re.FindStringSubmatch(link); m != nil {
			return m[1], nil
		}
	}
	return "", ErrNoPostID
}

// UserID extracts the user id from a profile link.
func UserID(link string) (string, error) {
	if m := userIDPattern.FindStringSubmatch(link); m != nil {
		return m[1], nil
	}
	return "", ErrNoUserID
}

// NormalizeLimit applies the default for 0 and rejects anything outside
// 1..MaxProfileLimit.
func NormalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultProfileLimit, nil
	}
	if limit < 1 || limit > MaxProfileLimit {
		return 0, fmt.Errorf("%w, got %d", ErrLimitOutside, limit)
	}
	return limit, nil
}
