package speak

// Spoken-language tags selected by script detection.
const (
	LangHindi   = "hi-IN"
	LangDefault = "en-IN"
)

// DetectLang picks the spoken-language tag for the text: Hindi when any
// Devanagari consonant/vowel is present, the default otherwise. This is a
// deliberate two-way heuristic, not general language detection.
func DetectLang(text string) string {
	for _, r := range text {
		if r >= 'अ' && r <= 'ह' {
			return LangHindi
		}
	}
	return LangDefault
}
