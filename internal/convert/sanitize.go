package convert

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"|?*]`)

// SanitizeTitle converts a page or attachment title into a filesystem-safe
// name while keeping recognizable characters. Path separators become dashes,
// characters invalid on common filesystems are dropped, and the result is
// NFC-normalized so references match across platforms.
func SanitizeTitle(title string) string {
	s := strings.TrimSpace(title)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	return norm.NFC.String(s)
}
