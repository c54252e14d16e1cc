package engine

import (
	"math"
	"regexp"
	"strings"

	"github.com/serpinsight/analyzer/internal/domain"
	"github.com/serpinsight/analyzer/internal/logger"
)

// Content quality weights. They sum to 1.0.
const (
	lengthWeight        = 0.25
	keywordWeight       = 0.20
	readabilityWeight   = 0.15
	mediaWeight         = 0.15
	internalLinksWeight = 0.10
	externalLinksWeight = 0.05
	vocabularyWeight    = 0.05
	headingWeight       = 0.05
)

// Word-count bands for the length score.
const (
	lengthBandThin      = 300
	lengthBandShort     = 500
	lengthBandMedium    = 1000
	lengthBandIdealLow  = 1500
	lengthBandIdealHigh = 2500
	lengthBandBloated   = 10000
)

// Keyword density bands, in percent of words.
const (
	densityTooThin  = 0.5
	densityIdealLow = 1.0
	densityIdealTop = 2.0
	densityStuffed  = 4.0
)

// Flesch Reading Ease coefficients.
const (
	fleschBase          = 206.835
	fleschSentenceCoeff = 1.015
	fleschSyllableCoeff = 84.6
)

const (
	wordsPerImage        = 300
	wordsPerInternalLink = 200
	videoBonusPerVideo   = 15
	videoBonusCap        = 30
	externalLinkPoints   = 10
	headingPoints        = 10
	vocabularyScale      = 150
	defaultKeywordScore  = 70
)

var sentencePattern = regexp.MustCompile(`[.!?]+`)

// ContentQualityAnalyzer scores a text body and its page metadata into the
// eight content sub-scores and a weighted overall score.
type ContentQualityAnalyzer struct {
	logger logger.Logger
}

// NewContentQualityAnalyzer creates a content quality analyzer.
func NewContentQualityAnalyzer(log logger.Logger) *ContentQualityAnalyzer {
	if log == nil {
		log = logger.NewNop()
	}
	return &ContentQualityAnalyzer{logger: log}
}

// Analyze scores the given content. Empty text produces an all-zero report
// rather than NaN ratios.
func (a *ContentQualityAnalyzer) Analyze(in domain.ContentInput) domain.ContentQualityReport {
	words := strings.Fields(in.Text)
	wordCount := len(words)
	if wordCount == 0 {
		return domain.ContentQualityReport{}
	}

	report := domain.ContentQualityReport{
		WordCount:          wordCount,
		LengthScore:        lengthScore(wordCount),
		KeywordScore:       keywordScore(in.Text, in.TargetKeyword, wordCount),
		ReadabilityScore:   readabilityScore(in.Text, words),
		MediaScore:         mediaScore(in.Images, in.Videos, wordCount),
		InternalLinksScore: internalLinksScore(in.InternalLinks, wordCount),
		ExternalLinksScore: math.Min(100, float64(in.ExternalLinks)*externalLinkPoints),
		VocabularyScore:    vocabularyScore(words),
		HeadingScore:       math.Min(100, float64(in.Headings)*headingPoints),
	}

	report.OverallScore = clampScore(
		lengthWeight*report.LengthScore +
			keywordWeight*report.KeywordScore +
			readabilityWeight*report.ReadabilityScore +
			mediaWeight*report.MediaScore +
			internalLinksWeight*report.InternalLinksScore +
			externalLinksWeight*report.ExternalLinksScore +
			vocabularyWeight*report.VocabularyScore +
			headingWeight*report.HeadingScore)

	a.logger.Debug("content quality analyzed",
		logger.Int("word_count", wordCount),
		logger.Float64("overall_score", report.OverallScore),
	)

	return report
}

func lengthScore(wordCount int) float64 {
	switch {
	case wordCount < lengthBandThin:
		return 20
	case wordCount < lengthBandShort:
		return 40
	case wordCount < lengthBandMedium:
		return 60
	case wordCount >= lengthBandIdealLow && wordCount <= lengthBandIdealHigh:
		return 100
	case wordCount < lengthBandIdealLow:
		return 80
	case wordCount > lengthBandBloated:
		return 60
	default:
		return 90
	}
}

func keywordScore(text, keyword string, wordCount int) float64 {
	keyword = strings.TrimSpace(strings.ToLower(keyword))
	if keyword == "" {
		return defaultKeywordScore
	}

	occurrences := strings.Count(strings.ToLower(text), keyword)
	density := float64(occurrences) / float64(wordCount) * 100

	switch {
	case density < densityTooThin:
		return 30
	case density >= densityIdealLow && density <= densityIdealTop:
		return 100
	case density > densityStuffed:
		return 40
	default:
		return 70
	}
}

// readabilityScore computes Flesch Reading Ease clamped to [0,100].
func readabilityScore(text string, words []string) float64 {
	sentences := countSentences(text)
	if sentences == 0 || len(words) == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	score := fleschBase -
		fleschSentenceCoeff*(float64(len(words))/float64(sentences)) -
		fleschSyllableCoeff*(float64(syllables)/float64(len(words)))
	return clampScore(score)
}

// countSentences counts sentence segments that contain at least one word.
// Text without terminal punctuation counts as a single sentence.
func countSentences(text string) int {
	segments := sentencePattern.Split(text, -1)
	count := 0
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			count++
		}
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		return 1
	}
	return count
}

// countSyllables estimates syllables for one word: short words count one;
// otherwise a silent-e style suffix is stripped ("es"/"ed"/"e" after a
// non-vowel), a leading "y" is dropped, and runs of contiguous vowels
// (including y) each count one syllable, with a minimum of one.
func countSyllables(word string) int {
	w := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return r < 'a' || r > 'z'
	}))
	if len(w) <= 3 {
		return 1
	}

	if len(w) > 2 {
		switch {
		case (strings.HasSuffix(w, "es") || strings.HasSuffix(w, "ed")) && !isVowel(w[len(w)-3]):
			w = w[:len(w)-2]
		case strings.HasSuffix(w, "e") && len(w) > 1 && !isVowel(w[len(w)-2]):
			w = w[:len(w)-1]
		}
	}
	w = strings.TrimPrefix(w, "y")

	syllables := 0
	inVowelRun := false
	for i := 0; i < len(w); i++ {
		if isVowel(w[i]) {
			if !inVowelRun {
				syllables++
				inVowelRun = true
			}
		} else {
			inVowelRun = false
		}
	}
	if syllables < 1 {
		return 1
	}
	return syllables
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

// mediaScore rewards one image per ~300 words plus a capped video bonus.
// The bonus can push the raw value past 100, so the result is clamped to
// keep every sub-score inside [0,100].
func mediaScore(images, videos, wordCount int) float64 {
	expectedImages := math.Ceil(float64(wordCount) / wordsPerImage)
	score := math.Min(100, float64(images)/expectedImages*100)
	score += math.Min(videoBonusCap, float64(videos)*videoBonusPerVideo)
	return clampScore(score)
}

func internalLinksScore(links, wordCount int) float64 {
	expectedLinks := math.Ceil(float64(wordCount) / wordsPerInternalLink)
	return math.Min(100, float64(links)/expectedLinks*100)
}

func vocabularyScore(words []string) float64 {
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	return math.Min(100, float64(len(unique))/float64(len(words))*vocabularyScale)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
