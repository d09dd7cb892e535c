package archive

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"

	"github.com/tessera-archive/tessera/pkg/site"
)

// englishStopwords covers the English half of the bilingual archive.
var englishStopwords = stopwords.MustGet("en")

// turkishStopwords are the function words of the Turkish half.
var turkishStopwords = map[string]bool{
	"acaba": true, "ama": true, "ancak": true, "bazı": true, "belki": true,
	"ben": true, "bir": true, "biri": true, "birkaç": true, "bu": true,
	"bunu": true, "bunun": true, "çok": true, "çünkü": true, "da": true,
	"daha": true, "de": true, "defa": true, "diye": true, "en": true,
	"gibi": true, "hem": true, "hep": true, "her": true, "hiç": true,
	"için": true, "ile": true, "ise": true, "kadar": true, "ki": true,
	"kim": true, "mı": true, "mi": true, "mu": true, "mü": true,
	"nasıl": true, "ne": true, "neden": true, "o": true, "olan": true,
	"olarak": true, "şey": true, "şu": true, "sonra": true, "ve": true,
	"veya": true, "ya": true, "yani": true,
}

// Field weights: a title hit outranks a category hit outranks body text.
const (
	titleWeight    = 3
	categoryWeight = 2
	textWeight     = 1
)

// Hit is a ranked search result.
type Hit struct {
	Post  site.Post `json:"post"`
	Score int       `json:"score"`
}

// IsStopword reports whether the folded token carries no search meaning.
func IsStopword(token string) bool {
	return turkishStopwords[token] || englishStopwords.Contains(token)
}

// Terms splits query into folded search terms, dropping stopwords and
// single characters.
func Terms(query string) []string {
	fields := strings.FieldsFunc(Fold(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var terms []string
	for _, f := range fields {
		if len([]rune(f)) < 2 || IsStopword(f) || slices.Contains(terms, f) {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// Search ranks posts by weighted term occurrences across title, category,
// excerpt and content. Posts without any hit are left out; ties go to the
// newer post.
func Search(posts []site.Post, query string) []Hit {
	terms := Terms(query)
	if len(terms) == 0 {
		return nil
	}

	var hits []Hit
	for _, p := range Chronological(posts) {
		title, category := Fold(p.Title), Fold(p.Category)
		text := Fold(p.Excerpt) + "\n" + Fold(p.Content)

		score := 0
		for _, term := range terms {
			score += titleWeight * strings.Count(title, term)
			score += categoryWeight * strings.Count(category, term)
			score += textWeight * strings.Count(text, term)
		}
		if score > 0 {
			hits = append(hits, Hit{Post: p, Score: score})
		}
	}

	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return hits
}
