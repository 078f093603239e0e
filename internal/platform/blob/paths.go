package blob

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

type SignatureKind string

const (
	SignatureBorrow      SignatureKind = "borrow"
	SignatureRequisition SignatureKind = "req"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

// SanitizeFilename keeps letters, digits, dot, dash and underscore.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	safe := strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
	if safe == "" || safe == "." || safe == ".." {
		return "file"
	}
	return safe
}

// jpegName swaps the extension since uploads are re-encoded as JPEG.
func jpegName(name string) string {
	name = SanitizeFilename(name)
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base = "image"
	}
	return base + ".jpg"
}

func SignatureKey(kind SignatureKind, ts time.Time, userID string) string {
	return fmt.Sprintf("signatures/%s_%d_%s.png", kind, ts.UnixMilli(), SanitizeFilename(userID))
}

func RepairImageKey(ts time.Time, filename string) string {
	return fmt.Sprintf("repair_images/%d_%s", ts.UnixMilli(), jpegName(filename))
}

func RepairCompletionKey(ts time.Time, filename string) string {
	return fmt.Sprintf("repair_completion/%d_%s", ts.UnixMilli(), jpegName(filename))
}

func CoverKey(jobID string, ts time.Time) string {
	return fmt.Sprintf("covers/%s_%d.jpg", jobID, ts.UnixMilli())
}

func VideoThumbnailKey(ts time.Time, filename string) string {
	return fmt.Sprintf("video_thumbnails/%d_%s", ts.UnixMilli(), jpegName(filename))
}
