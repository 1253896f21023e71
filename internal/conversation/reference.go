package conversation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// ExtractReference finds the first demonstrative in text and the precursor
// verb and reference noun around it.
//
// A precursor before the demonstrative ("cook this") is preferred. Failing
// that, the word after the demonstrative is taken as the precursor and the
// kind is read one word further on ("this cook ingredient").
func ExtractReference(text string) domain.Reference {
	toks := referenceTokens(text)
	at := func(i int) string {
		if i < 0 || i >= len(toks) {
			return ""
		}
		return toks[i]
	}

	for i, tok := range toks {
		dem := domain.DemonstrativeFromWord(tok)
		if dem == domain.DemonstrativeNone {
			continue
		}

		ref := domain.Reference{Demonstrative: dem}
		switch {
		case domain.PrecursorFromWord(at(i-1)) != domain.PrecursorNone:
			ref.Precursor = domain.PrecursorFromWord(at(i - 1))
			ref.Kind = domain.ReferenceKindFromWord(at(i + 1))
		case domain.PrecursorFromWord(at(i+1)) != domain.PrecursorNone:
			ref.Precursor = domain.PrecursorFromWord(at(i + 1))
			ref.Kind = domain.ReferenceKindFromWord(at(i + 2))
		default:
			ref.Kind = domain.ReferenceKindFromWord(at(i + 1))
		}
		return ref
	}
	return domain.Reference{}
}

// referenceTokens lower-cases text, splits on whitespace, and trims
// punctuation from each token so "ingredient?" reads as "ingredient".
func referenceTokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Outcome is the result class of a reference resolution.
type Outcome int

const (
	// NoReference means the utterance has no demonstrative; use it as is.
	NoReference Outcome = iota
	// Substituted means the demonstrative phrase was replaced by the subject.
	Substituted
	// DirectAnswer means the caller should reply with Text and stop.
	DirectAnswer
	// Ambiguous means more than one subject fits; ask the user to pick.
	Ambiguous
	// Unresolved means no subject could be determined.
	Unresolved
	// NotSubstituted means one subject fits but the reference phrase does
	// not occur verbatim (a precursor read after the demonstrative), so
	// Text is the utterance unchanged.
	NotSubstituted
)

// String returns a human-readable outcome.
func (o Outcome) String() string {
	switch o {
	case NoReference:
		return "no_reference"
	case Substituted:
		return "substituted"
	case DirectAnswer:
		return "direct_answer"
	case Ambiguous:
		return "ambiguous"
	case Unresolved:
		return "unresolved"
	case NotSubstituted:
		return "not_substituted"
	default:
		return "unknown"
	}
}

// Resolution is what the resolver decided for one utterance.
type Resolution struct {
	Outcome    Outcome
	Reference  domain.Reference
	Text       string   // rewritten utterance, or the step text for DirectAnswer
	Candidates []string // set for Ambiguous
}

// Candidates are the recipe subjects mentioned in one step's text.
type Candidates struct {
	Ingredients []string
	Tools       []string
	Methods     []string
}

// FindCandidates scans stepText for every known ingredient, tool, and method
// name of the recipe (case-insensitive substring match).
func FindCandidates(recipe *domain.Recipe, stepText string) Candidates {
	lower := strings.ToLower(stepText)
	pick := func(names []string) []string {
		var out []string
		for _, n := range names {
			if n != "" && strings.Contains(lower, strings.ToLower(n)) {
				out = append(out, n)
			}
		}
		return out
	}
	return Candidates{
		Ingredients: pick(recipe.IngredientNames()),
		Tools:       pick(recipe.Tools),
		Methods:     pick(recipe.Methods),
	}
}

// Resolver rewrites demonstrative references against the active step.
type Resolver struct {
	log *logger.Logger
}

// NewResolver creates a reference resolver.
func NewResolver(log *logger.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve detects a reference in utterance and resolves it against step
// stepIdx of recipe.
func (r *Resolver) Resolve(utterance string, recipe *domain.Recipe, stepIdx int) Resolution {
	ref := ExtractReference(utterance)
	if !ref.Found() {
		return Resolution{Outcome: NoReference, Text: utterance}
	}

	step := recipe.Steps[stepIdx]
	cands := FindCandidates(recipe, step.Text)
	r.log.Debug("reference %q in step %d: %d ingredients, %d tools, %d methods",
		ref.Span(), step.Number, len(cands.Ingredients), len(cands.Tools), len(cands.Methods))

	var pool []string
	switch ref.Kind {
	case domain.KindIngredient:
		pool = cands.Ingredients
	case domain.KindTool:
		pool = cands.Tools
	case domain.KindMethod:
		pool = cands.Methods
	case domain.KindStep, domain.KindNone:
		switch ref.Precursor {
		case domain.PrecursorDo:
			return Resolution{Outcome: DirectAnswer, Reference: ref, Text: step.Text}
		case domain.PrecursorOf:
			pool = cands.Ingredients
			if len(pool) == 0 {
				pool = cands.Tools
			}
		case domain.PrecursorCook, domain.PrecursorPrepare, domain.PrecursorGet,
			domain.PrecursorMake, domain.PrecursorReplace:
			pool = cands.Ingredients
		case domain.PrecursorUse:
			pool = cands.Tools
		case domain.PrecursorNone:
			return Resolution{Outcome: Unresolved, Reference: ref, Text: utterance}
		}
	}

	switch len(pool) {
	case 0:
		return Resolution{Outcome: Unresolved, Reference: ref, Text: utterance}
	case 1:
		text, ok := substitute(utterance, ref, pool[0])
		if !ok {
			r.log.Debug("reference %q not found verbatim; keeping utterance", ref.Span())
			return Resolution{Outcome: NotSubstituted, Reference: ref, Text: utterance}
		}
		return Resolution{Outcome: Substituted, Reference: ref, Text: text}
	default:
		return Resolution{Outcome: Ambiguous, Reference: ref, Text: utterance, Candidates: pool}
	}
}

// substitute replaces the first occurrence of the reference span in
// utterance with the precursor followed by subject. It reports false when
// the span does not occur verbatim.
func substitute(utterance string, ref domain.Reference, subject string) (string, bool) {
	words := strings.Fields(ref.Span())
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
	loc := re.FindStringIndex(utterance)
	if loc == nil {
		return utterance, false
	}

	replacement := subject
	if p := ref.Precursor.String(); p != "" {
		replacement = p + " " + subject
	}
	return utterance[:loc[0]] + replacement + utterance[loc[1]:], true
}
