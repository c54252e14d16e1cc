package engine

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/serpinsight/analyzer/internal/domain"
	"github.com/serpinsight/analyzer/internal/logger"
)

// Intent keyword lists. Order matters: the classifier checks transactional
// first, then commercial, then navigational, and falls back to
// informational. A keyword matching an earlier list never reaches a later
// one.
var (
	transactionalKeywords = []string{
		"buy", "purchase", "order", "cheap", "price", "pricing",
		"discount", "deal", "coupon", "shop", "sale", "for sale",
		"subscription", "book now",
	}
	commercialKeywords = []string{
		"best", "top", "review", "compare", "comparison", "vs",
		"versus", "alternative", "alternatives", "rating", "ranked",
	}
	navigationalKeywords = []string{
		"login", "log in", "sign in", "signup", "sign up", "website",
		"official", "download", "app", "account", "dashboard", "portal",
	}
)

// intentMatcher pairs a compiled automaton with the intent it resolves to.
type intentMatcher struct {
	intent  domain.SearchIntent
	matcher *ahocorasick.Matcher
}

// IntentClassifier assigns one of four search intents to a keyword by
// substring matching against fixed keyword lists in priority order.
type IntentClassifier struct {
	matchers []intentMatcher
	logger   logger.Logger
}

// NewIntentClassifier builds the classifier with its automatons compiled
// once up front.
func NewIntentClassifier(log logger.Logger) *IntentClassifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &IntentClassifier{
		matchers: []intentMatcher{
			{domain.IntentTransactional, ahocorasick.NewStringMatcher(transactionalKeywords)},
			{domain.IntentCommercial, ahocorasick.NewStringMatcher(commercialKeywords)},
			{domain.IntentNavigational, ahocorasick.NewStringMatcher(navigationalKeywords)},
		},
		logger: log,
	}
}

// Classify returns the intent for a single keyword. The first matching
// list wins; keywords matching no list are informational.
func (c *IntentClassifier) Classify(keyword string) domain.SearchIntent {
	text := []byte(strings.ToLower(keyword))
	for _, m := range c.matchers {
		if len(m.matcher.Match(text)) > 0 {
			return m.intent
		}
	}
	return domain.IntentInformational
}

// ClassifyAll classifies a batch of keywords, preserving input order.
func (c *IntentClassifier) ClassifyAll(keywords []string) []domain.KeywordIntent {
	out := make([]domain.KeywordIntent, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, domain.KeywordIntent{
			Keyword: kw,
			Intent:  c.Classify(kw),
		})
	}
	return out
}
