package classify

import "testing"

func TestYearFromFolderName(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantOK  bool
	}{
		{"Photos from 2019", 2019, true},
		{"photos FROM 2003", 2003, true},
		{"Fotos de 2020", 2020, true},
		{"Fotos von 2021", 2021, true},
		{"Foto's van 2018", 2018, true},
		{"Photos de 2017", 2017, true},
		{"Untitled(3)", 0, false},
		{"Archive", 0, false},
	}
	for _, tt := range tests {
		got, ok := YearFromFolderName(tt.name)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("YearFromFolderName(%q) = (%d, %v), want (%d, %v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSpecialFolderName(t *testing.T) {
	if got := SpecialFolderName("Archive"); got != "Archive" {
		t.Errorf("SpecialFolderName(Archive) = %q, want Archive", got)
	}
	if got := SpecialFolderName("papelera"); got != "Trash" {
		t.Errorf("SpecialFolderName(papelera) = %q, want Trash", got)
	}
	if got := SpecialFolderName("Vacations"); got != "" {
		t.Errorf("SpecialFolderName(Vacations) = %q, want empty", got)
	}
}

func TestIsMediaExtension(t *testing.T) {
	for _, ext := range []string{".jpg", "JPG", ".heic", ".mp4", ".mp", ".mv", ".cr2"} {
		if !IsMediaExtension(ext) {
			t.Errorf("IsMediaExtension(%q) = false, want true", ext)
		}
	}
	if IsMediaExtension(".json") {
		t.Errorf("IsMediaExtension(.json) = true, want false")
	}
}

func TestIsVideoExtension(t *testing.T) {
	if !IsVideoExtension(".mp") || !IsVideoExtension(".mv") {
		t.Errorf("expected Pixel motion-photo track extensions to be classified as video")
	}
	if IsVideoExtension(".jpg") {
		t.Errorf("IsVideoExtension(.jpg) = true, want false")
	}
}

func TestSniffHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   MIME
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, MIMEJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, MIMEPNG},
		{"gif87", []byte("GIF87a"), MIMEGIF},
		{"gif89", []byte("GIF89a"), MIMEGIF},
		{"tiff-ii", []byte("II*\x00"), MIMETIFF},
		{"heic", append([]byte{0, 0, 0, 0x18}, append([]byte("ftyp"), []byte("heic")...)...), MIMEHEIF},
		{"mp4", append([]byte{0, 0, 0, 0x18}, append([]byte("ftyp"), []byte("isom")...)...), MIMEMP4},
		{"unknown", []byte{0x00, 0x01, 0x02}, MIMEUnknown},
	}
	for _, tt := range tests {
		if got := SniffHeader(tt.header); got != tt.want {
			t.Errorf("%s: SniffHeader() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExtensionForMIMERoundTrips(t *testing.T) {
	for _, m := range []MIME{MIMEJPEG, MIMEPNG, MIMEGIF, MIMEHEIF, MIMETIFF, MIMEWebP, MIMEMP4} {
		if ExtensionForMIME(m) == "" {
			t.Errorf("ExtensionForMIME(%q) returned empty extension", m)
		}
	}
	if ExtensionForMIME(MIMEUnknown) != "" {
		t.Errorf("ExtensionForMIME(unknown) should be empty")
	}
}
