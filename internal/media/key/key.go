// Package key derives blob storage keys and maps them to and from their
// public reference URLs. Keys have the shape folder/<token>-<name> where the
// token is unique per upload, so a key is never reused for a second asset.
package key

import (
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxNamePart caps the sanitized original-name component of a key.
const maxNamePart = 100

// Deriver builds storage keys and resolves public references back to keys.
// The public base is the URL prefix under which blobs are served, e.g.
// "https://cdn.example.com/media" or "http://localhost:9000/baoandkai".
type Deriver struct {
	publicBase string
	basePath   string
}

// NewDeriver creates a Deriver for the given public base URL. A trailing
// slash on publicBase is ignored.
func NewDeriver(publicBase string) *Deriver {
	base := strings.TrimRight(publicBase, "/")

	basePath := ""
	if u, err := url.Parse(base); err == nil {
		basePath = strings.TrimRight(u.Path, "/")
	}

	return &Deriver{
		publicBase: base,
		basePath:   basePath,
	}
}

// Derive constructs a new storage key for a file named originalName inside
// folder. The token prefix is the current unix millisecond plus a random
// uuid fragment, so two concurrent uploads of identically named files never
// collide.
func (d *Deriver) Derive(folder, originalName string) string {
	token := strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.New().String()[:8]
	return sanitizeSegment(folder) + "/" + token + "-" + sanitizeName(originalName)
}

// Thumbnail returns the key under which the thumbnail variant of the blob at
// k is stored. It inserts "_thumb" before the extension. Pure, never fails.
func Thumbnail(k string) string {
	ext := path.Ext(k)
	return strings.TrimSuffix(k, ext) + "_thumb" + ext
}

// Reference returns the public URL for the blob stored under k.
func (d *Deriver) Reference(k string) string {
	return d.publicBase + "/" + k
}

// ExtractKey parses a reference previously issued by Reference and returns
// the storage key behind it. References that do not match this deriver's URL
// shape (external avatars, placeholder images, garbage) yield ok == false.
// ExtractKey never panics on malformed input.
func (d *Deriver) ExtractKey(reference string) (string, bool) {
	if reference == "" || d.publicBase == "" {
		return "", false
	}

	var k string
	switch {
	case strings.HasPrefix(reference, d.publicBase+"/"):
		k = strings.TrimPrefix(reference, d.publicBase+"/")
	case d.basePath != "" && strings.HasPrefix(reference, d.basePath+"/"):
		// Application-relative form, e.g. "/media/timeline/...".
		k = strings.TrimPrefix(reference, d.basePath+"/")
	default:
		return "", false
	}

	if !validKey(k) {
		return "", false
	}
	return k, true
}

// validKey reports whether k looks like a key this package could have
// issued: a folder segment, a slash, and a non-empty name with no traversal
// or escape characters.
func validKey(k string) bool {
	if k == "" || strings.Contains(k, "..") || strings.Contains(k, "?") || strings.Contains(k, "#") {
		return false
	}
	folder, name, found := strings.Cut(k, "/")
	if !found || folder == "" || name == "" {
		return false
	}
	return true
}

// sanitizeSegment strips characters that would change the folder structure
// of a key.
func sanitizeSegment(s string) string {
	return sanitize(s, false)
}

// sanitizeName cleans the original file name for use as the key suffix. The
// extension is preserved; everything unsafe becomes "_".
func sanitizeName(s string) string {
	out := sanitize(s, true)
	if len(out) > maxNamePart {
		ext := path.Ext(out)
		out = out[:maxNamePart-len(ext)] + ext
	}
	return out
}

func sanitize(s string, allowDot bool) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		case r == '.' && allowDot:
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		default:
			// Path separators, control characters, and anything exotic.
			b.WriteByte('_')
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", "._")
	}
	if out == "" {
		out = "file"
	}
	return out
}
