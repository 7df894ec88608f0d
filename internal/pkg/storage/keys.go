package storage

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// UploadKey places an uploaded file under uploads/ with a unique prefix.
func UploadKey(folder, filename string) string {
	name := sanitizeFilename(filename)
	folder = strings.Trim(sanitizePath(folder), "/")
	if folder == "" {
		return fmt.Sprintf("uploads/%s-%s", uuid.NewString(), name)
	}
	return fmt.Sprintf("uploads/%s/%s-%s", folder, uuid.NewString(), name)
}

// ValidKey rejects keys that escape the bucket prefix.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	clean := path.Clean(key)
	return clean == key && !strings.HasPrefix(clean, "..")
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func sanitizePath(p string) string {
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		kept = append(kept, sanitizeFilename(part))
	}
	return strings.Join(kept, "/")
}
