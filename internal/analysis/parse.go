package analysis

import (
	"regexp"
	"strings"
)

// Reading is the best-effort structured view of one generated answer,
// extracted only for the persistence/analytics path. Parsed is false
// when the prose did not follow the structured format; that is normal
// for conversational answers and never an error.
type Reading struct {
	LSToSAStatus string
	LSToSADetail string
	SAToLSStatus string
	SAToLSDetail string
	Summary      string
	Advice       string
	Parsed       bool
}

var (
	lsToSALine  = regexp.MustCompile(`(?im)^\s*` + labelLSToSA + `\s*:\s*([^.\n]+)\.?\s*(.*)$`)
	saToLSLine  = regexp.MustCompile(`(?im)^\s*` + labelSAToLS + `\s*:\s*([^.\n]+)\.?\s*(.*)$`)
	summaryLine = regexp.MustCompile(`(?im)^\s*` + labelSummary + `\s*:\s*(.+)$`)
	adviceLine  = regexp.MustCompile(`(?im)^\s*` + labelAdvice + `\s*:\s*(.+)$`)
)

// ParseReading scrapes the two-direction format out of generated prose.
// Any line that does not match is simply left empty.
func ParseReading(message string) Reading {
	var r Reading

	if m := lsToSALine.FindStringSubmatch(message); m != nil {
		r.LSToSAStatus = strings.TrimSpace(m[1])
		r.LSToSADetail = strings.TrimSpace(m[2])
	}
	if m := saToLSLine.FindStringSubmatch(message); m != nil {
		r.SAToLSStatus = strings.TrimSpace(m[1])
		r.SAToLSDetail = strings.TrimSpace(m[2])
	}
	if m := summaryLine.FindStringSubmatch(message); m != nil {
		r.Summary = strings.TrimSpace(m[1])
	}
	if m := adviceLine.FindStringSubmatch(message); m != nil {
		r.Advice = strings.TrimSpace(m[1])
	}

	r.Parsed = r.LSToSAStatus != "" && r.SAToLSStatus != ""
	return r
}
