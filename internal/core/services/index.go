package services

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

// minTokenLen is the shortest token kept by Tokenize, in runes.
const minTokenLen = 2

// Tokenize lower-cases text and splits it on non-alphanumeric boundaries.
// Tokens shorter than two runes are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// uniqueSorted returns the distinct tokens in ascending order.
func uniqueSorted(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// field identifies where a token occurred.
type field uint8

const (
	fieldTitle field = iota
	fieldSection
	fieldContent
)

// fieldWeights are the score multipliers per field.
var fieldWeights = [...]float64{
	fieldTitle:   3,
	fieldSection: 2,
	fieldContent: 1,
}

// posting is one (reference, field) occurrence of a token.
type posting struct {
	refID string
	field field
	tf    int
}

// frameworkIndex is the immutable index slice of one framework.
// It is built once per load and replaced wholesale on refresh.
type frameworkIndex struct {
	framework domain.Framework
	refs      map[string]*domain.Reference
	ordered   []*domain.Reference
	postings  map[string][]posting
	tokenSets map[string]map[string]struct{}
	size      int
}

// buildFrameworkIndex indexes a framework's references.
func buildFrameworkIndex(fw domain.Framework, refs []domain.Reference) *frameworkIndex {
	ix := &frameworkIndex{
		framework: fw,
		refs:      make(map[string]*domain.Reference, len(refs)),
		ordered:   make([]*domain.Reference, 0, len(refs)),
		postings:  make(map[string][]posting),
		tokenSets: make(map[string]map[string]struct{}, len(refs)),
	}

	for i := range refs {
		ref := &refs[i]
		ix.refs[ref.ID] = ref
		ix.ordered = append(ix.ordered, ref)
		ix.size += len(ref.Content) + len(ref.Title)

		set := make(map[string]struct{})
		add := func(f field, text string) {
			counts := make(map[string]int)
			for _, tok := range Tokenize(text) {
				counts[tok]++
				set[tok] = struct{}{}
			}
			for tok, n := range counts {
				ix.postings[tok] = append(ix.postings[tok], posting{refID: ref.ID, field: f, tf: n})
			}
		}
		add(fieldTitle, ref.Title)
		add(fieldSection, strings.Join(ref.Sections, "\n"))
		add(fieldContent, ref.Content)
		ix.tokenSets[ref.ID] = set
	}
	return ix
}

// SizeEstimate implements Sizer.
func (ix *frameworkIndex) SizeEstimate() int {
	return ix.size
}

// score returns the additive weighted term frequency of every matching reference.
func (ix *frameworkIndex) score(tokens []string) map[string]float64 {
	scores := make(map[string]float64)
	for _, tok := range tokens {
		for _, p := range ix.postings[tok] {
			scores[p.refID] += float64(p.tf) * fieldWeights[p.field]
		}
	}
	return scores
}

// detail returns copies of the framework and its references.
func (ix *frameworkIndex) detail() (domain.Framework, []domain.Reference) {
	fw := ix.framework
	fw.ReferenceIDs = append([]string(nil), ix.framework.ReferenceIDs...)
	fw.FailedReferences = append([]string(nil), ix.framework.FailedReferences...)
	refs := make([]domain.Reference, len(ix.ordered))
	for i, r := range ix.ordered {
		refs[i] = *r
	}
	return fw, refs
}

// Index publishes framework slices to lock-free readers.
//
// Thread Safety:
//
//	Writers copy the framework map and swap it atomically; readers load the
//	current map without locking and never observe a partially built slice.
type Index struct {
	mu      sync.Mutex
	current atomic.Pointer[map[string]*frameworkIndex]
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	x := &Index{}
	empty := make(map[string]*frameworkIndex)
	x.current.Store(&empty)
	return x
}

// install publishes a framework slice, replacing any previous one.
func (x *Index) install(ix *frameworkIndex) {
	x.mu.Lock()
	defer x.mu.Unlock()

	old := *x.current.Load()
	next := make(map[string]*frameworkIndex, len(old)+1)
	for id, v := range old {
		next[id] = v
	}
	next[ix.framework.ID] = ix
	x.current.Store(&next)
}

// get returns the published slice of a framework.
func (x *Index) get(id string) (*frameworkIndex, bool) {
	ix, ok := (*x.current.Load())[id]
	return ix, ok
}

// Len returns the number of published frameworks.
func (x *Index) Len() int {
	return len(*x.current.Load())
}
