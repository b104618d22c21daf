// Package album implements post-merge album
// membership discovery. For every file in every MediaEntity that lived in
// an album directory, the owning entity's AlbumsMap records the album
// name and the emoji-encoded-on-disk source directory it was seen in.
// Year-folder parentage is never written here.
package album

import (
	"gphotoreorg/internal/domain"
	"gphotoreorg/internal/filename"
)

// untitledAlbumFolder is the collapsed destination name for Google's
// "Untitled(n)" album exports.
const untitledAlbumFolder = "Untitled Albums"

// Enrich walks every file of every entity and populates AlbumsMap. It is
// pure computation over already-built entities,'s
// claim that stage 6 "per-entity failures cannot occur".
func Enrich(entities []*domain.MediaEntity) {
	for _, m := range entities {
		for _, f := range m.AllFiles() {
			if f.SpecialFolder != "" {
				// Special folders bypass album-map enrichment entirely.
				continue
			}
			if f.AlbumName == "" {
				continue
			}
			name := CollapseUntitled(f.AlbumName)
			m.RecordAlbum(name, filename.EncodeForFilesystem(f.AlbumSourceDir))
		}
	}
}

// CollapseUntitled folds Google's auto-named "Untitled(n)" albums into a
// single shared folder name
func CollapseUntitled(name string) string {
	if isUntitled(name) {
		return untitledAlbumFolder
	}
	return name
}

func isUntitled(name string) bool {
	if len(name) < len("Untitled") || name[:len("Untitled")] != "Untitled" {
		return false
	}
	rest := name[len("Untitled"):]
	if rest == "" {
		return true
	}
	if rest[0] != '(' || rest[len(rest)-1] != ')' {
		return false
	}
	for _, c := range rest[1 : len(rest)-1] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
