package tts

import (
	"regexp"
	"strings"
)

// Speech-unfriendly symbols are expanded per language so every provider,
// and the local speaker in degraded mode, pronounces prices and
// percentages the same way.
var symbolWords = map[string]struct{ rupee, percent string }{
	"hi": {"रुपये", "प्रतिशत"},
	"mr": {"रुपये", "टक्के"},
	"bn": {"টাকা", "শতাংশ"},
	"ta": {"ரூபாய்", "சதவீதம்"},
	"te": {"రూపాయలు", "శాతం"},
}

var (
	rupeeAmountRe   = regexp.MustCompile(`₹\s*([\d,]+(?:\.\d+)?)`)
	percentAmountRe = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s*%`)
	boldRe          = regexp.MustCompile(`\*\*([^*]*)\*\*`)
	italicRe        = regexp.MustCompile(`\*([^*]*)\*|_([^_]*)_`)
	headingRe       = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	bulletRe        = regexp.MustCompile(`(?m)^\s*[-*•]\s+`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

// Normalize prepares text for speech synthesis. Currency and percent
// symbols become words in the target language, markdown formatting is
// stripped, and newlines become sentence breaks. Run once by the caller
// before the first provider attempt so the whole chain and the local
// speaker see identical text.
func Normalize(text, language string) string {
	if text == "" {
		return ""
	}

	words, ok := symbolWords[baseLanguage(language)]
	if !ok {
		words = struct{ rupee, percent string }{"rupees", "percent"}
	}

	out := rupeeAmountRe.ReplaceAllString(text, "$1 "+words.rupee)
	out = strings.ReplaceAll(out, "₹", words.rupee)
	out = percentAmountRe.ReplaceAllString(out, "$1 "+words.percent)

	out = headingRe.ReplaceAllString(out, "")
	out = bulletRe.ReplaceAllString(out, "")
	out = boldRe.ReplaceAllString(out, "$1")
	out = italicRe.ReplaceAllString(out, "$1$2")
	out = strings.ReplaceAll(out, "`", "")

	// Newlines read as pauses, not as run-on words.
	out = strings.ReplaceAll(out, "\r\n", "\n")
	lines := strings.Split(out, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasSuffix(line, ".") && !strings.HasSuffix(line, "।") &&
			!strings.HasSuffix(line, "?") && !strings.HasSuffix(line, "!") {
			line += "."
		}
		kept = append(kept, line)
	}
	out = strings.Join(kept, " ")

	return strings.TrimSpace(spaceRe.ReplaceAllString(out, " "))
}

// baseLanguage reduces a BCP-47 tag like "hi-IN" to its primary
// subtag "hi".
func baseLanguage(code string) string {
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return strings.ToLower(code[:i])
	}
	return strings.ToLower(code)
}
