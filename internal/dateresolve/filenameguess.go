// filenameguess.go implements the filename_guess resolver: a curated list
// of filename date patterns. Grounded on tendant-photo-organizer's
// datePatterns table (DJI/Sony/generic timestamp regexes), extended with
// Google-specific and WhatsApp patterns.
package dateresolve

import (
	"regexp"
	"time"
)

type filenamePattern struct {
	re     *regexp.Regexp
	layout string
	desc   string
}

// filenamePatterns is tried in order; the first match wins. Each pattern
// has exactly one capture group spanning the literal date/time text its
// layout parses.
var filenamePatterns = []filenamePattern{
	{regexp.MustCompile(`Screenshot_(\d{8}-\d{6})`), "20060102-150405", "Android screenshot"},
	{regexp.MustCompile(`IMG_(\d{8}_\d{6})`), "20060102_150405", "Google Camera / stock camera"},
	{regexp.MustCompile(`VID_(\d{8}_\d{6})`), "20060102_150405", "stock camera video"},
	{regexp.MustCompile(`IMG-(\d{8})-WA\d+`), "20060102", "WhatsApp image"},
	{regexp.MustCompile(`VID-(\d{8})-WA\d+`), "20060102", "WhatsApp video"},
	{regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}\.\d{2}\.\d{2})`), "2006-01-02 15.04.05", "space-dot timestamp"},
	{regexp.MustCompile(`BURST(\d{8}\d{6})`), "20060102150405", "burst shot"},
	{regexp.MustCompile(`DJI_(\d{8}\d{6})`), "20060102150405", "DJI drone"},
	{regexp.MustCompile(`^(\d{8})_C\d+`), "20060102", "Sony video clip"},
	{regexp.MustCompile(`(\d{8}_\d{6})`), "20060102_150405", "generic YYYYMMDD_HHMMSS"},
	{regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`), "2006-01-02", "ISO date"},
	{regexp.MustCompile(`(\d{8})`), "20060102", "compact date"},
}

// minGuessYear is the lower bound of accepted filename-guess dates;
// together with the now+1 year upper bound checked in GuessFromFilename
// it keeps guesses in the plausible range [1800..now+1].
const minGuessYear = 1800

// GuessFromFilename tries each pattern against base (without directory),
// returning the first plausible date.
func GuessFromFilename(base string) (time.Time, bool) {
	now := time.Now()
	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		t, err := time.Parse(p.layout, m[1])
		if err != nil {
			continue
		}
		if t.Year() < minGuessYear || t.After(now.AddDate(1, 0, 0)) {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
