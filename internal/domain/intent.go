package domain

// SearchIntent is the inferred purpose behind a keyword.
type SearchIntent string

// Intent labels, in classification priority order. A keyword matching the
// transactional list is transactional even if it would also match a later
// list; informational is the default when nothing matches.
const (
	IntentTransactional SearchIntent = "transactional"
	IntentCommercial    SearchIntent = "commercial"
	IntentNavigational  SearchIntent = "navigational"
	IntentInformational SearchIntent = "informational"
)

// KeywordIntent pairs a keyword with its classified intent.
type KeywordIntent struct {
	Keyword string       `json:"keyword"`
	Intent  SearchIntent `json:"intent"`
}
