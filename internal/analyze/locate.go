package analyze

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// province prefixes composed addresses; every notice on this board is
// published by the same metropolitan authority.
const province = "부산"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// fullAddrRe matches a complete administrative address: optional
	// province, district (구), neighborhood (동), lot number with an
	// optional mountain-lot prefix (산), optional 번지/일원 suffixes.
	fullAddrRe = regexp.MustCompile(`부산(?:광역시)?\s*[가-힣]+구\s+[가-힣]+동\s+(?:산\s*)?\d+(?:-\d+)*(?:\s*번지)?(?:\s*일원)?`)
	// partialAddrRe is the same shape without the province.
	partialAddrRe = regexp.MustCompile(`[가-힣]+구\s+[가-힣]+동\s+(?:산\s*)?\d+(?:-\d+)*(?:\s*번지)?(?:\s*일원)?`)

	locationLabelRe = regexp.MustCompile(`위\s*치[:\s]*(.{5,80})`)
	districtRe      = regexp.MustCompile(`부산(?:광역시)?\s*([가-힣]+구)`)
	dongLotRe       = regexp.MustCompile(`[가-힣]+동\s+(?:산\s*)?\d+(?:-\d+)*\s*번지`)
	dongRe          = regexp.MustCompile(`[가-힣]+동`)
	lotNumberRe     = regexp.MustCompile(`((?:산\s*)?\d+(?:-\d+)*)\s*번지`)
)

// Window around the neighborhood token, in runes, searched for a lot
// number by the title-anchored tier.
const (
	lotWindowBefore = 50
	lotWindowAfter  = 100
)

// locator is one heuristic attempt of the location cascade. text is
// whitespace-collapsed; the title is passed through untouched.
type locator func(title, text string) (string, bool)

// locationTiers is the extraction priority order. The ordering is a
// policy, not an accident: explicit label first, bare pattern scan
// second, recombination tiers last. First success wins and later tiers
// are never attempted.
var locationTiers = []locator{
	labeledFieldTier,
	directScanTier,
	districtLotTier,
	titleAnchoredTier,
}

// locate runs the cascade left to right and returns the first hit.
func locate(title, text string) (string, bool) {
	for _, tier := range locationTiers {
		if addr, ok := tier(title, text); ok {
			return strings.TrimSpace(whitespaceRe.ReplaceAllString(addr, " ")), true
		}
	}
	return "", false
}

// labeledFieldTier anchors on the 위치 ("location") label and matches
// the address patterns inside the 5..80 characters that follow it.
func labeledFieldTier(_, text string) (string, bool) {
	m := locationLabelRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return firstAddress(m[1])
}

// directScanTier runs the address patterns over the whole text.
func directScanTier(_, text string) (string, bool) {
	return firstAddress(text)
}

// districtLotTier recombines a district token and a neighborhood+lot
// token found independently anywhere in the text.
func districtLotTier(_, text string) (string, bool) {
	gu := districtRe.FindStringSubmatch(text)
	if gu == nil {
		return "", false
	}
	dongLot := dongLotRe.FindString(text)
	if dongLot == "" {
		return "", false
	}
	return fmt.Sprintf("%s %s %s", province, gu[1], dongLot), true
}

// titleAnchoredTier takes the neighborhood from the title, the district
// from the text, and a lot number from a bounded window around the
// neighborhood's position in the text, composing whatever was found.
func titleAnchoredTier(title, text string) (string, bool) {
	dong := dongRe.FindString(title)
	if dong == "" {
		return "", false
	}

	var gu string
	if m := districtRe.FindStringSubmatch(text); m != nil {
		gu = m[1]
	}

	var lot string
	if byteIdx := strings.Index(text, dong); byteIdx >= 0 {
		nearby := runeWindow(text, byteIdx, lotWindowBefore, lotWindowAfter)
		if m := lotNumberRe.FindStringSubmatch(nearby); m != nil {
			lot = m[1]
		}
	}

	switch {
	case gu != "" && lot != "":
		return fmt.Sprintf("%s %s %s %s번지", province, gu, dong, lot), true
	case gu != "":
		return fmt.Sprintf("%s %s %s", province, gu, dong), true
	default:
		return fmt.Sprintf("%s %s", province, dong), true
	}
}

// firstAddress matches the full pattern before the partial one; within
// a pattern the first match by document order wins.
func firstAddress(text string) (string, bool) {
	if m := fullAddrRe.FindString(text); m != "" {
		return m, true
	}
	if m := partialAddrRe.FindString(text); m != "" {
		return m, true
	}
	return "", false
}

// runeWindow slices text around the anchor byte offset using rune
// counts, so multi-byte Hangul is never split mid-character.
func runeWindow(text string, anchorByte, before, after int) string {
	anchor := utf8.RuneCountInString(text[:anchorByte])
	runes := []rune(text)
	start := anchor - before
	if start < 0 {
		start = 0
	}
	end := anchor + after
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}
