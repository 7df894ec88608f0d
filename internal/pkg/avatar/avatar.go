package avatar

import (
	"crypto/md5"
	"fmt"
	"strings"
)

const DefaultSize = 80

// URL returns the stored avatar when present and a Gravatar image for the
// email otherwise. An empty email yields an empty URL.
func URL(stored, email string, size int) string {
	if stored = strings.TrimSpace(stored); stored != "" {
		return stored
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	if size <= 0 {
		size = DefaultSize
	}
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", md5.Sum([]byte(email)), size)
}
