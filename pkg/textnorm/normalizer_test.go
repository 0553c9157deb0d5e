package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_AlifVariants(t *testing.T) {
	r := Normalize("أحمد إبراهيم آدم", DefaultSearchOptions())
	assert.Equal(t, "احمد ابراهيم ادم", r.Normalized)
}

func TestNormalize_Diacritics(t *testing.T) {
	r := Normalize("الْمَادَّةُ", DefaultSearchOptions())
	assert.Equal(t, "الماده", r.Normalized)
}

func TestNormalize_Digits(t *testing.T) {
	r := Normalize("المادة ١٥", DefaultSearchOptions())
	assert.Equal(t, "الماده 15", r.Normalized)
}

func TestNormalize_WhitespaceCollapse(t *testing.T) {
	r := Normalize("الباب   الأول  \n\t ", DefaultSearchOptions())
	assert.Equal(t, "الباب الاول", r.Normalized)
}

func TestNormalize_TaaMarbuta(t *testing.T) {
	search := Normalize("المادة", DefaultSearchOptions())
	display := Normalize("المادة", DefaultDisplayOptions())
	assert.Equal(t, "الماده", search.Normalized)
	assert.Equal(t, "المادة", display.Normalized)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"الباب الأول: أحكام عامة",
		"المادة ١٥: يجب على الموظف...",
		"  تشكيل  مُتعدد  ",
		"Chapter الباب السابع عشر 47",
	}
	for _, in := range inputs {
		once := NormalizeString(in, DefaultSearchOptions())
		twice := NormalizeString(once, DefaultSearchOptions())
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", in)
	}
}

func TestNormalize_Purity(t *testing.T) {
	// classify_line purity depends on normalization being a pure function of input.
	a := NormalizeString("المادة الأولى", DefaultSearchOptions())
	b := NormalizeString("المادة الأولى", DefaultSearchOptions())
	assert.Equal(t, a, b)
}
