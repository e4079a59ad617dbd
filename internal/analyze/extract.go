// Package analyze turns noisy OCR text into structured fact records.
//
// OCR output is inconsistent across the issuing authorities' PDF
// templates, so no single pattern is reliable. Location extraction is a
// four-tier cascade ordered from "most likely correct" (explicit label)
// to "most likely present but ambiguous" (title-derived); numeric facts
// are independent single-pattern searches. Extraction is pure: the same
// (title, text) pair always yields the same record.
package analyze

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/choksense/gosi-watcher/internal/gosi"
)

const reconstructionKeyword = "재건축"

// Numeric patterns run over the raw text, not the whitespace-collapsed
// form, so unit markers such as ㎡ keep their surrounding layout.
var (
	areaRe     = regexp.MustCompile(`(?:구역)?면적[:\s]*([0-9,]+\.?\d*)\s*㎡`)
	unitRe     = regexp.MustCompile(`(?:총\s*)?세대수[:\s]*([0-9,]+)`)
	buildingRe = regexp.MustCompile(`([0-9]+)\s*개?\s*동`)
	// floorRe requires below-grade then above-grade on one line; partial
	// floor information is not recorded.
	floorRe = regexp.MustCompile(`지하\s*(\d+).*지상\s*(\d+)`)
)

// Extract derives a FactRecord from the announcement title and the OCR
// text of its primary attachment. Absent facts stay nil.
func Extract(title, text string) gosi.FactRecord {
	rec := gosi.FactRecord{Classification: classify(title)}

	collapsed := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if addr, ok := locate(title, collapsed); ok {
		rec.Location = &addr
	}

	if m := areaRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(stripCommas(m[1]), 64); err == nil {
			rec.AreaSqm = &v
		}
	}
	if m := unitRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(stripCommas(m[1])); err == nil {
			rec.UnitCount = &v
		}
	}
	if m := buildingRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			rec.BuildingCount = &v
		}
	}
	if m := floorRe.FindStringSubmatch(text); m != nil {
		below, errB := strconv.Atoi(m[1])
		above, errA := strconv.Atoi(m[2])
		if errB == nil && errA == nil {
			rec.Floors = &gosi.FloorRange{Below: below, Above: above}
		}
	}

	return rec
}

func classify(title string) gosi.Classification {
	if strings.Contains(title, reconstructionKeyword) {
		return gosi.ClassReconstruction
	}
	return gosi.ClassRedevelopment
}

func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

// TextLength counts the recognized characters for the quality gate.
func TextLength(text string) int {
	return utf8.RuneCountInString(text)
}
