package retrieval

// Document is one retrievable passage: its text plus free-form string
// metadata (source link, date, cached answer).
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}
