package services

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextNormalizer bereinigt Freitext aus Formularen, bevor er gespeichert wird:
// Unicode NFC, keine Steuerzeichen außer Tab/Zeilenumbruch, HTML nur nach UGC-Policy.
type TextNormalizer struct {
	policy *bluemonday.Policy
}

func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{policy: bluemonday.UGCPolicy()}
}

func isDisallowedControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

// Clean normalisiert und sanitisiert einen einzelnen Wert.
func (tn *TextNormalizer) Clean(in string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isDisallowedControl)), norm.NFC)
	normalized, _, err := transform.String(t, in)
	if err != nil {
		// ungültige Sequenzen: nur NFC
		normalized = norm.NFC.String(in)
	}
	return strings.TrimSpace(tn.policy.Sanitize(normalized))
}

// CleanArticle wendet Clean auf alle Freitextfelder an.
func (tn *TextNormalizer) CleanArticle(in ArticleInput) ArticleInput {
	in.Title = tn.Clean(in.Title)
	in.TypeOfReport = strings.TrimSpace(in.TypeOfReport)
	in.URL = strings.TrimSpace(in.URL)
	in.DetailedSummary = tn.Clean(in.DetailedSummary)
	in.Analysis = tn.Clean(in.Analysis)
	in.Recommendation = tn.Clean(in.Recommendation)
	paths := make([]string, 0, len(in.ImagePath))
	for _, p := range in.ImagePath {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	in.ImagePath = paths
	return in
}
