// Package hierarchy implements the hierarchy reconstructor and defines
// the tree-shaped data model: Document -> Chapter -> Section -> Article.
package hierarchy

// ParentKind tags which of {Document, Chapter, Section} owns an Article —
// a polymorphic parent reference implemented as a tagged variant rather
// than three untyped nullable foreign keys.
type ParentKind string

const (
	ParentDocument ParentKind = "document"
	ParentChapter  ParentKind = "chapter"
	ParentSection  ParentKind = "section"
)

// Chapter is a top-level subdivision (الباب).
type Chapter struct {
	Index      int    // 1-based within document
	Label      string // display label, e.g. "الباب الأول"
	Title      string
	Anonymous  bool // synthetic chapter created to host an orphaned Section
	SourceLine int
}

// Section is a second-level subdivision (الفصل), always owned by a Chapter.
type Section struct {
	Index        int // 1-based within its Chapter
	ChapterIndex int
	Label        string
	Title        string
	SourceLine   int
}

// Article is the leaf legal unit (المادة).
type Article struct {
	Number       string // string: Arabic compound numerals are in play
	OrdinalIndex int    // resolved ordinal, 0 if unresolved
	Title        string
	Body         string
	OrderIndex   int // 1-based, monotonically non-decreasing in reading order

	ParentKind    ParentKind
	ChapterIndex  int // valid when ParentKind != ParentDocument and a chapter is set
	SectionIndex  int // valid when ParentKind == ParentSection
	HasChapter    bool
	HasSection    bool

	SourceLine int
	Warnings   []string
}

// Document is the root of the tree plus the parse diagnostics produced
// along the way.
type Document struct {
	Chapters []Chapter
	Sections []Section // flat list; (ChapterIndex, Index) identifies parent
	Articles []Article

	Diagnostics []Diagnostic
}

// Diagnostic captures a non-fatal parsing note: dropped content, duplicate
// article numbers, discarded chapters, etc.
type Diagnostic struct {
	Line   int
	Reason string
	Detail string
}
