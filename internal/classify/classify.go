// Package classify implements recognizing year
// folders, album folders, special folders, and media files by extension
// and by MIME-sniffing the first bytes of a file. Grounded on an
// extension/MIME check in the style of processAndSend's image-extension
// fallback, generalized to cover video and the full photo/raw extension
// set
package classify

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// yearFolderPatterns are the localized "Photos from YYYY" forms Takeout
// emits across locales. Matching is case-insensitive.
var yearFolderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^photos from (\d{4})$`),
	regexp.MustCompile(`(?i)^fotos (?:de|del|desde) (\d{4})$`),
	regexp.MustCompile(`(?i)^fotos von (\d{4})$`),       // German
	regexp.MustCompile(`(?i)^foto's van (\d{4})$`),      // Dutch
	regexp.MustCompile(`(?i)^photos de (\d{4})$`),       // French
	regexp.MustCompile(`(?i)^zdjęcia z (\d{4}) r?\.?$`), // Polish
	regexp.MustCompile(`(?i)^(\d{4}) 年の写真$`),            // Japanese
	regexp.MustCompile(`(?i)^来自(\d{4})年的照片$`),           // Chinese
}

var specialFolderNames = map[string]string{
	"archive":       "Archive",
	"trash":         "Trash",
	"locked folder": "Locked Folder",
	"papelera":      "Trash",
	"archivo":       "Archive",
	"corbeille":     "Trash",
	"archiv":        "Archive",
	"papierkorb":    "Trash",
}

// YearFromFolderName returns the four-digit year and true if base matches
// a localized year-folder pattern.
func YearFromFolderName(base string) (int, bool) {
	for _, re := range yearFolderPatterns {
		m := re.FindStringSubmatch(base)
		if m != nil {
			y := 0
			for _, c := range m[1] {
				y = y*10 + int(c-'0')
			}
			return y, true
		}
	}
	return 0, false
}

// IsYearFolder reports whether base is a recognized year folder name.
func IsYearFolder(base string) bool {
	_, ok := YearFromFolderName(base)
	return ok
}

// SpecialFolderName returns the canonical special-folder name (Archive,
// Trash, Locked Folder) for base, or "" if base is not one.
func SpecialFolderName(base string) string {
	return specialFolderNames[strings.ToLower(base)]
}

// IsHiddenOrSystem reports whether base should never be treated as an
// album folder (dotfiles, the library's own output markers).
func IsHiddenOrSystem(base string) bool {
	return strings.HasPrefix(base, ".") || base == "__MACOSX"
}

var photoExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".heic": true, ".heif": true, ".png": true,
	".gif": true, ".webp": true, ".tiff": true, ".tif": true, ".avif": true,
	".jxl": true,
	".arw": true, ".cr2": true, ".cr3": true, ".crw": true, ".dng": true,
	".nef": true, ".nrw": true, ".raf": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".mts": true, ".m2ts": true, ".avi": true,
	".mkv": true, ".webm": true, ".mpg": true, ".mpeg": true, ".3gp": true,
	".mp": true, ".mv": true, // Pixel Motion Photo video track
}

// IsMediaExtension reports whether ext (with or without leading dot) is a
// recognized photo or video extension.
func IsMediaExtension(ext string) bool {
	ext = normalizeExt(ext)
	return photoExts[ext] || videoExts[ext]
}

// IsPhotoExtension reports whether ext is in the photo/raw whitelist.
func IsPhotoExtension(ext string) bool {
	return photoExts[normalizeExt(ext)]
}

// IsVideoExtension reports whether ext is in the video whitelist,
// including Pixel's .mp/.mv motion-photo track extensions.
func IsVideoExtension(ext string) bool {
	return videoExts[normalizeExt(ext)]
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// IsJSONSidecar reports whether path looks like a Takeout JSON sidecar
// (used by directory walks to skip sidecars when listing media candidates).
func IsJSONSidecar(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// MIME is the small set of signatures this package must recognize:
// JPEG SOI, PNG signature, HEIF ftyp family, TIFF II/MM.
type MIME string

const (
	MIMEJPEG    MIME = "image/jpeg"
	MIMEPNG     MIME = "image/png"
	MIMEGIF     MIME = "image/gif"
	MIMEHEIF    MIME = "image/heif"
	MIMETIFF    MIME = "image/tiff"
	MIMEWebP    MIME = "image/webp"
	MIMEMP4     MIME = "video/mp4"
	MIMEUnknown MIME = ""
)

var heifBrands = map[string]bool{
	"heic": true, "heix": true, "hevc": true, "hevx": true,
	"mif1": true, "msf1": true, "avif": true, "avis": true,
}

// SniffHeader inspects up to the first 16 bytes of header and returns the
// true MIME type, independent of the file's extension.
func SniffHeader(header []byte) MIME {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return MIMEJPEG
	case len(header) >= 8 && bytes.Equal(header[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return MIMEPNG
	case len(header) >= 6 && (bytes.Equal(header[:6], []byte("GIF87a")) || bytes.Equal(header[:6], []byte("GIF89a"))):
		return MIMEGIF
	case len(header) >= 4 && (bytes.Equal(header[:4], []byte("II*\x00")) || bytes.Equal(header[:4], []byte("MM\x00*"))):
		return MIMETIFF
	case len(header) >= 12 && bytes.Equal(header[4:8], []byte("ftyp")):
		brand := string(header[8:12])
		if heifBrands[strings.ToLower(brand)] {
			return MIMEHEIF
		}
		return MIMEMP4
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WEBP")):
		return MIMEWebP
	default:
		return MIMEUnknown
	}
}

// SniffFile opens path and sniffs its header. Returns MIMEUnknown (not an
// error) when the file is too short or unreadable; callers fall back to
// extension-based recognition two-tier design.
func SniffFile(path string) MIME {
	f, err := os.Open(path)
	if err != nil {
		return MIMEUnknown
	}
	defer f.Close()
	buf := make([]byte, 16)
	n, _ := f.Read(buf)
	if n <= 0 {
		return MIMEUnknown
	}
	return SniffHeader(buf[:n])
}

// ExtensionForMIME maps a sniffed MIME type back to its canonical
// extension, used by the extension-fixing stage.
func ExtensionForMIME(m MIME) string {
	switch m {
	case MIMEJPEG:
		return ".jpg"
	case MIMEPNG:
		return ".png"
	case MIMEGIF:
		return ".gif"
	case MIMEHEIF:
		return ".heic"
	case MIMETIFF:
		return ".tiff"
	case MIMEWebP:
		return ".webp"
	case MIMEMP4:
		return ".mp4"
	default:
		return ""
	}
}
