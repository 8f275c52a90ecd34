package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	snapshotDigestLen = 12
	fileDigestLen     = 10
	maxFilenameLen    = 180

	fallbackEntityKey = "custom_company"
	fallbackFilename  = "document.pdf"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Digest returns the full hex SHA-1 fingerprint of a canonical reference.
// The same reference string always yields the same digest, across runs and
// processes; the digest never depends on document content.
func Digest(ref string) string {
	sum := sha1.Sum([]byte(ref))
	return hex.EncodeToString(sum[:])
}

// SnapshotID is the short digest used as a snapshot key for custom sources.
func SnapshotID(ref string) string {
	return Digest(ref)[:snapshotDigestLen]
}

// FilePrefix is the short digest prepended to downloaded filenames so two
// references that sanitize to the same basename still land on distinct paths.
func FilePrefix(ref string) string {
	return Digest(ref)[:fileDigestLen]
}

// SafeEntityKey derives a filesystem-safe key from a user-supplied label.
// The sanitization is lossy: two different labels can collide on the same
// key and share a snapshot file and download directory. Accepted limitation.
func SafeEntityKey(label string) string {
	cleaned := unsafeChars.ReplaceAllString(strings.TrimSpace(label), "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return fallbackEntityKey
	}
	return cleaned
}

// CompanyKey maps a registered company name to its snapshot/storage key.
// Matches the layout of existing snapshot files: spaces become underscores.
func CompanyKey(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// CustomKey maps a custom-source label to its snapshot key.
func CustomKey(label string) string {
	return "custom_" + SafeEntityKey(label)
}

// SafeFilename restricts a basename to a filesystem-safe character set and
// caps its length.
func SafeFilename(name string) string {
	cleaned := strings.TrimSpace(name)
	cleaned = strings.ReplaceAll(cleaned, "\\", "_")
	cleaned = strings.ReplaceAll(cleaned, "/", "_")
	cleaned = unsafeChars.ReplaceAllString(cleaned, "_")
	if len(cleaned) > maxFilenameLen {
		cleaned = cleaned[:maxFilenameLen]
	}
	if cleaned == "" {
		return fallbackFilename
	}
	return cleaned
}
