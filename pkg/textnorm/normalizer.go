// Package textnorm implements the Arabic text normalizer. It is applied
// identically to classifier input, embedding input, and query text so that
// all three stages agree on what "the same text" means.
package textnorm

import (
	"strings"
	"unicode"
)

// Options controls the optional, configurable normalization steps. The
// mandatory steps (presentation-form folding, diacritic stripping, alif
// unification, digit folding, whitespace collapse) always run.
type Options struct {
	// NormalizeYaaFinal folds trailing ى to ي. Default ON.
	NormalizeYaaFinal bool
	// NormalizeTaaMarbuta folds ة to ه. Default ON for search, OFF for display.
	NormalizeTaaMarbuta bool
}

// DefaultSearchOptions matches the defaults used for classification,
// embedding, and query normalization.
func DefaultSearchOptions() Options {
	return Options{NormalizeYaaFinal: true, NormalizeTaaMarbuta: true}
}

// DefaultDisplayOptions matches the default used when text is rendered
// back to a reader (Tā' marbūṭa is preserved).
func DefaultDisplayOptions() Options {
	return Options{NormalizeYaaFinal: true, NormalizeTaaMarbuta: false}
}

// Span maps a byte offset range in normalized text back to the original text.
type Span struct {
	NormStart, NormEnd int
	OrigStart, OrigEnd int
}

// Result is the normalized text together with the offset map required to
// recover original spans for display.
type Result struct {
	Original   string
	Normalized string
	// Spans is ordered by NormStart and covers the entire normalized string.
	Spans []Span
}

// combining diacritics (tashkīl): fatha, damma, kasra, sukūn, shadda, tanwīn,
// plus the dagger alif and small high marks that behave the same way.
var diacritics = map[rune]bool{
	'ً': true, // tanwin fath
	'ٌ': true, // tanwin damm
	'ٍ': true, // tanwin kasr
	'َ': true, // fatha
	'ُ': true, // damma
	'ِ': true, // kasra
	'ّ': true, // shadda
	'ْ': true, // sukun
	'ٓ': true, // maddah above
	'ٔ': true, // hamza above
	'ٕ': true, // hamza below
	'ٖ': true, // subscript alef
	'ٰ': true, // dagger alif (superscript alef)
	'ـ': false, // tatweel: stripped, but handled separately (not a diacritic, a stretch char)
}

// alifVariants fold {أ, إ, آ} and a few rarer alif forms to the bare alif.
var alifVariants = map[rune]rune{
	'أ': 'ا', // hamza above alif -> alif
	'إ': 'ا', // hamza below alif -> alif
	'آ': 'ا', // alif madda -> alif
	'ٱ': 'ا', // alif wasla -> alif
}

// hindiDigits maps Eastern Arabic-Indic and Extended Arabic-Indic digits to ASCII.
var hindiDigits = map[rune]rune{
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
}

// presentationForms folds a useful slice of the Arabic Presentation Forms-A/B
// blocks down to their canonical base letters. This is not an exhaustive
// mapping of all ~700 presentation-form ligatures (that belongs in a
// generated table); it covers the isolated/final/initial/medial forms of the
// letters that appear in practice in OCR/PDF-extracted legal text.
var presentationForms = map[rune]rune{
	'ﺍ': 'ا', 'ﺎ': 'ا', // alif
	'ﺏ': 'ب', 'ﺐ': 'ب', 'ﺑ': 'ب', 'ﺒ': 'ب', // baa
	'ﺕ': 'ت', 'ﺖ': 'ت', 'ﺗ': 'ت', 'ﺘ': 'ت', // taa
	'ﺙ': 'ث', 'ﺚ': 'ث', 'ﺛ': 'ث', 'ﺜ': 'ث', // thaa
	'ﺝ': 'ج', 'ﺞ': 'ج', 'ﺟ': 'ج', 'ﺠ': 'ج', // jeem
	'ﺡ': 'ح', 'ﺢ': 'ح', 'ﺣ': 'ح', 'ﺤ': 'ح', // haa
	'ﺥ': 'خ', 'ﺦ': 'خ', 'ﺧ': 'خ', 'ﺨ': 'خ', // khaa
	'ﺩ': 'د', 'ﺪ': 'د', // dal
	'ﺫ': 'ذ', 'ﺬ': 'ذ', // thal
	'ﺭ': 'ر', 'ﺮ': 'ر', // raa
	'ﺯ': 'ز', 'ﺰ': 'ز', // zay
	'ﺱ': 'س', 'ﺲ': 'س', 'ﺳ': 'س', 'ﺴ': 'س', // seen
	'ﺵ': 'ش', 'ﺶ': 'ش', 'ﺷ': 'ش', 'ﺸ': 'ش', // sheen
	'ﺹ': 'ص', 'ﺺ': 'ص', 'ﺻ': 'ص', 'ﺼ': 'ص', // sad
	'ﺽ': 'ض', 'ﺾ': 'ض', 'ﺿ': 'ض', 'ﻀ': 'ض', // dad
	'ﻁ': 'ط', 'ﻂ': 'ط', 'ﻃ': 'ط', 'ﻄ': 'ط', // tah
	'ﻅ': 'ظ', 'ﻆ': 'ظ', 'ﻇ': 'ظ', 'ﻈ': 'ظ', // zah
	'ﻉ': 'ع', 'ﻊ': 'ع', 'ﻋ': 'ع', 'ﻌ': 'ع', // ain
	'ﻍ': 'غ', 'ﻎ': 'غ', 'ﻏ': 'غ', 'ﻐ': 'غ', // ghain
	'ﻑ': 'ف', 'ﻒ': 'ف', 'ﻓ': 'ف', 'ﻔ': 'ف', // fa
	'ﻕ': 'ق', 'ﻖ': 'ق', 'ﻗ': 'ق', 'ﻘ': 'ق', // qaf
	'ﻙ': 'ك', 'ﻚ': 'ك', 'ﻛ': 'ك', 'ﻜ': 'ك', // kaf
	'ﻝ': 'ل', 'ﻞ': 'ل', 'ﻟ': 'ل', 'ﻠ': 'ل', // lam
	'ﻡ': 'م', 'ﻢ': 'م', 'ﻣ': 'م', 'ﻤ': 'م', // meem
	'ﻥ': 'ن', 'ﻦ': 'ن', 'ﻧ': 'ن', 'ﻨ': 'ن', // noon
	'ﻩ': 'ه', 'ﻪ': 'ه', 'ﻫ': 'ه', 'ﻬ': 'ه', // heh
	'ﻭ': 'و', 'ﻮ': 'و', // waw
	'ﻯ': 'ى', 'ﻰ': 'ى', // alif maksura
	'ﻱ': 'ي', 'ﻲ': 'ي', 'ﻳ': 'ي', 'ﻴ': 'ي', // yaa
	// lam-alif ligatures are not in this table and pass through unfolded.
}

const (
	alifMaksura  = 'ى'
	yaa          = 'ي'
	taaMarbuta   = 'ة'
	haa          = 'ه'
	tatweel      = 'ـ'
)

// Normalize runs the full normalization pipeline and returns the normalized
// text plus an offset map back to the original.
func Normalize(s string, opts Options) Result {
	runes := []rune(s)
	var b strings.Builder
	spans := make([]Span, 0, len(runes))

	origByte := 0
	lastWasSpace := false
	for _, r := range runes {
		origLen := len(string(r))
		origStart := origByte
		origByte += origLen

		if diacritics[r] || r == tatweel {
			continue // stripped entirely, no normalized span emitted
		}

		mapped, ok := presentationForms[r]
		if ok {
			r = mapped
		}
		if v, ok := alifVariants[r]; ok {
			r = v
		}
		if r == alifMaksura && opts.NormalizeYaaFinal {
			r = yaa
		}
		if r == taaMarbuta && opts.NormalizeTaaMarbuta {
			r = haa
		}
		if d, ok := hindiDigits[r]; ok {
			r = d
		}

		if unicode.IsSpace(r) {
			if lastWasSpace {
				continue
			}
			r = ' '
			lastWasSpace = true
		} else {
			lastWasSpace = false
		}

		normStart := b.Len()
		b.WriteRune(r)
		spans = append(spans, Span{
			NormStart: normStart,
			NormEnd:   b.Len(),
			OrigStart: origStart,
			OrigEnd:   origByte,
		})
	}

	normalized := strings.TrimSpace(b.String())
	trimmedFront := len(b.String()) - len(strings.TrimLeft(b.String(), " "))
	if trimmedFront > 0 || len(normalized) < b.Len() {
		spans = trimSpans(spans, b.String(), normalized)
	}

	return Result{Original: s, Normalized: normalized, Spans: spans}
}

// trimSpans re-anchors spans after TrimSpace shifted the normalized string.
func trimSpans(spans []Span, before, after string) []Span {
	if after == "" {
		return nil
	}
	offset := strings.Index(before, after)
	if offset < 0 {
		return spans
	}
	out := make([]Span, 0, len(spans))
	for _, sp := range spans {
		if sp.NormStart < offset || sp.NormEnd > offset+len(after) {
			continue
		}
		out = append(out, Span{
			NormStart: sp.NormStart - offset,
			NormEnd:   sp.NormEnd - offset,
			OrigStart: sp.OrigStart,
			OrigEnd:   sp.OrigEnd,
		})
	}
	return out
}

// NormalizeString is a convenience wrapper returning only the normalized text.
func NormalizeString(s string, opts Options) string {
	return Normalize(s, opts).Normalized
}
