package ocr

import (
	"regexp"
	"strings"
)

var (
	reWordChars = regexp.MustCompile(`[A-Za-z0-9]`)
	reDateLike  = regexp.MustCompile(`\d{1,4}[-/]\d{1,2}[-/]\d{2,4}`)
	reLicLike   = regexp.MustCompile(`\d{3}-\d{3}-\d{3}`)
)

// scoreText estimates how license-like and readable the OCR output is. The
// score blends the alphanumeric character ratio with bonuses for structures
// a license carries (dates, a serial-shaped number, a state-zip pair). It is
// a heuristic for triage, not a calibrated probability.
func (e *Extractor) scoreText(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}

	alnum := len(reWordChars.FindAllString(t, -1))
	ratio := float64(alnum) / float64(len(t))
	score := ratio * 0.6

	if reDateLike.MatchString(t) {
		score += 0.15
	}
	if reLicLike.MatchString(t) {
		score += 0.15
	}
	if reBareStateZip.MatchString(t) {
		score += 0.10
	}
	if score > 1 {
		score = 1
	}
	return score
}

var reBareStateZip = regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`)
