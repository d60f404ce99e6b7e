package utils

import (
	"regexp"

	"github.com/momentum-app/momentum-api/internal/constants"
)

var handlePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidHandle reports whether h is an acceptable user handle: lowercase
// letters, digits and underscores, length bounded by constants.
func ValidHandle(h string) bool {
	if len(h) < constants.MinHandleLength || len(h) > constants.MaxHandleLength {
		return false
	}
	return handlePattern.MatchString(h)
}
