package domain

// ContentInput is the text body and optional page metadata handed to the
// content quality analyzer. Counts default to zero when the caller has no
// crawl data for the page.
type ContentInput struct {
	Text          string `json:"text"`
	TargetKeyword string `json:"target_keyword,omitempty"`
	Images        int    `json:"images"`
	Videos        int    `json:"videos"`
	InternalLinks int    `json:"internal_links"`
	ExternalLinks int    `json:"external_links"`
	Headings      int    `json:"headings"`
}

// ContentQualityReport holds the eight content sub-scores and the weighted
// overall score, all in [0,100].
type ContentQualityReport struct {
	LengthScore        float64 `json:"length_score"`
	KeywordScore       float64 `json:"keyword_score"`
	ReadabilityScore   float64 `json:"readability_score"`
	MediaScore         float64 `json:"media_score"`
	InternalLinksScore float64 `json:"internal_links_score"`
	ExternalLinksScore float64 `json:"external_links_score"`
	VocabularyScore    float64 `json:"vocabulary_score"`
	HeadingScore       float64 `json:"heading_score"`
	OverallScore       float64 `json:"overall_score"`
	WordCount          int     `json:"word_count"`
}
