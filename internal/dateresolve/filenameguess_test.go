package dateresolve

import "testing"

func TestGuessFromFilename(t *testing.T) {
	tests := []struct {
		base    string
		wantOK  bool
		wantISO string
	}{
		{"Screenshot_20190815-143022.png", true, "2019-08-15"},
		{"IMG_20180101_120000.jpg", true, "2018-01-01"},
		{"VID_20180101_120000.mp4", true, "2018-01-01"},
		{"IMG-20170604-WA0001.jpg", true, "2017-06-04"},
		{"DJI_20200304153000.jpg", true, "2020-03-04"},
		{"random-name.jpg", false, ""},
	}
	for _, tt := range tests {
		got, ok := GuessFromFilename(tt.base)
		if ok != tt.wantOK {
			t.Errorf("GuessFromFilename(%q) ok = %v, want %v", tt.base, ok, tt.wantOK)
			continue
		}
		if ok && got.Format("2006-01-02") != tt.wantISO {
			t.Errorf("GuessFromFilename(%q) date = %s, want %s", tt.base, got.Format("2006-01-02"), tt.wantISO)
		}
	}
}

func TestGuessFromFilenameRejectsImplausibleYears(t *testing.T) {
	if _, ok := GuessFromFilename("00000101_000000.jpg"); ok {
		t.Errorf("expected a pre-1800 compact date to be rejected")
	}
}
