package extractor

// Category names the data block a fragment was declared in.
// The value is the identifier used in the deck source (`const VOCAB = [...]`).
type Category string

const (
	CategoryVocabulary Category = "VOCAB"
	CategorySentence   Category = "SENTENCES"
	CategoryQuestion   Category = "QUESTIONS"
	CategoryQuiz       Category = "QUIZ"
)

// DefaultIncludedCategories are extracted unless configured otherwise.
func DefaultIncludedCategories() []Category {
	return []Category{CategoryVocabulary, CategorySentence, CategoryQuestion}
}

// DefaultExcludedCategories never reach the output, even when also included.
func DefaultExcludedCategories() []Category {
	return []Category{CategoryQuiz}
}

const DefaultTextField = "en"

// Document is an opaque handle to one deck.
type Document struct {
	Path    string
	Content []byte
}

// Fragment is one piece of text to be voiced.
type Fragment struct {
	Category Category
	Text     string
	Source   string
}
