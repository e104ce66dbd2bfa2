package domain

// Allowed content types for media uploads.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MaxFileSize is the maximum allowed file size in bytes (10 MB).
const MaxFileSize int64 = 10 * 1024 * 1024

// Media folder constants. Each owning vertical stores its blobs under its own
// folder prefix.
const (
	FolderTimeline = "timeline"
	FolderAlbums   = "albums"
	FolderFood     = "food"
	FolderTodo     = "todo"
	FolderTravel   = "travel"
)

// IsAllowedContentType checks whether the given content type is allowed.
func IsAllowedContentType(contentType string) bool {
	return AllowedContentTypes[contentType]
}

// ValidFolders returns the set of valid media folders.
func ValidFolders() []string {
	return []string{FolderTimeline, FolderAlbums, FolderFood, FolderTodo, FolderTravel}
}

// IsValidFolder checks whether the given folder is a known media folder.
func IsValidFolder(folder string) bool {
	for _, f := range ValidFolders() {
		if f == folder {
			return true
		}
	}
	return false
}
