package constants

import "strings"

// MediaType is the declared input format of a document.
type MediaType string

const (
	MediaPDF   MediaType = "PDF"
	MediaImage MediaType = "IMAGE"
)

// AllowedExtensions holds the default allowed file extensions for ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt checks a normalized extension against the allowed set.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToMedia maps a file extension to its media type, or "" if unsupported.
func MapExtToMedia(ext string) MediaType {
	switch NormalizeExt(ext) {
	case "pdf":
		return MediaPDF
	case "jpg", "jpeg", "png":
		return MediaImage
	default:
		return ""
	}
}
