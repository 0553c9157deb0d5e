package classifier

import "regexp"

// ordinalTable maps normalized Arabic ordinal spellings — masculine and
// feminine, with and without hamza, with and without the definite article —
// to their 1-based integer value. Covers 1-29.
var ordinalTable = map[string]int{
	// masculine (chapters, sections)
	"الاول": 1, "اول": 1,
	"الثاني": 2, "ثاني": 2,
	"الثالث": 3, "ثالث": 3,
	"الرابع": 4, "رابع": 4,
	"الخامس": 5, "خامس": 5,
	"السادس": 6, "سادس": 6,
	"السابع": 7, "سابع": 7,
	"الثامن": 8, "ثامن": 8,
	"التاسع": 9, "تاسع": 9,
	"العاشر": 10, "عاشر": 10,
	"الحادي عشر": 11, "حادي عشر": 11,
	"الثاني عشر": 12, "ثاني عشر": 12,
	"الثالث عشر": 13, "ثالث عشر": 13,
	"الرابع عشر": 14, "رابع عشر": 14,
	"الخامس عشر": 15, "خامس عشر": 15,
	"السادس عشر": 16, "سادس عشر": 16,
	"السابع عشر": 17, "سابع عشر": 17,
	"الثامن عشر": 18, "ثامن عشر": 18,
	"التاسع عشر": 19, "تاسع عشر": 19,
	"العشرون": 20, "عشرون": 20,
	"الحادي والعشرون": 21, "حادي والعشرون": 21,
	"الثاني والعشرون": 22, "ثاني والعشرون": 22,
	"الثالث والعشرون": 23, "ثالث والعشرون": 23,
	"الرابع والعشرون": 24, "رابع والعشرون": 24,
	"الخامس والعشرون": 25, "خامس والعشرون": 25,
	"السادس والعشرون": 26, "سادس والعشرون": 26,
	"السابع والعشرون": 27, "سابع والعشرون": 27,
	"الثامن والعشرون": 28, "ثامن والعشرون": 28,
	"التاسع والعشرون": 29, "تاسع والعشرون": 29,

	// feminine (articles: المادة الأولى, الثانية, ...). Keys are stored in
	// their post-normalization spelling: classify_line resolves ordinals
	// against text already run through textnorm's default search options,
	// which folds alif maksura (ى) to yaa (ي), so "الأولى"/"اولى" become
	// "الاولي"/"اولي" by the time they reach this table.
	"الاولي": 1, "اولي": 1,
	"الثانيه": 2, "ثانيه": 2,
	"الثالثه": 3, "ثالثه": 3,
	"الرابعه": 4, "رابعه": 4,
	"الخامسه": 5, "خامسه": 5,
	"السادسه": 6, "سادسه": 6,
	"السابعه": 7, "سابعه": 7,
	"الثامنه": 8, "ثامنه": 8,
	"التاسعه": 9, "تاسعه": 9,
	"العاشره": 10, "عاشره": 10,
	"الحاديه عشره": 11, "حاديه عشره": 11,
	"الثانيه عشره": 12, "ثانيه عشره": 12,
	"الثالثه عشره": 13, "ثالثه عشره": 13,
	"الرابعه عشره": 14, "رابعه عشره": 14,
	"الخامسه عشره": 15, "خامسه عشره": 15,
	"السادسه عشره": 16, "سادسه عشره": 16,
	"السابعه عشره": 17, "سابعه عشره": 17,
	"الثامنه عشره": 18, "ثامنه عشره": 18,
	"التاسعه عشره": 19, "تاسعه عشره": 19,
	// "العشرون" (20) has one spelling for both genders; it is listed above.
	"الحاديه والعشرون": 21, "حاديه والعشرون": 21,
	"الثانيه والعشرون": 22, "ثانيه والعشرون": 22,
	"الثالثه والعشرون": 23, "ثالثه والعشرون": 23,
	"الرابعه والعشرون": 24, "رابعه والعشرون": 24,
	"الخامسه والعشرون": 25, "خامسه والعشرون": 25,
	"السادسه والعشرون": 26, "سادسه والعشرون": 26,
	"السابعه والعشرون": 27, "سابعه والعشرون": 27,
	"الثامنه والعشرون": 28, "ثامنه والعشرون": 28,
	"التاسعه والعشرون": 29, "تاسعه والعشرون": 29,
}

var numericFallback = regexp.MustCompile(`\d+`)

// ResolveOrdinal looks up a normalized ordinal spelling (e.g. "الأولى" after
// normalization becomes "الاولي"). Falls through to extracting a numeric
// substring; returns (0, false) if neither resolves, signalling the caller
// to keep the marker with a null index and reduced confidence.
func ResolveOrdinal(normalizedOrdinal string) (int, bool) {
	if v, ok := ordinalTable[normalizedOrdinal]; ok {
		return v, true
	}
	if m := numericFallback.FindString(normalizedOrdinal); m != "" {
		n := 0
		for _, c := range m {
			n = n*10 + int(c-'0')
		}
		if n > 0 {
			return n, true
		}
	}
	return 0, false
}
