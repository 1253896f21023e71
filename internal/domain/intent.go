package domain

// IntentCategory classifies what kind of request an utterance is.
type IntentCategory int

const (
	IntentGeneral    IntentCategory = iota // whole-recipe or off-recipe question
	IntentNavigation                       // move the step pointer
	IntentStep                             // question scoped to the active step
)

// String returns a human-readable intent category.
func (c IntentCategory) String() string {
	switch c {
	case IntentGeneral:
		return "general"
	case IntentNavigation:
		return "navigation"
	case IntentStep:
		return "step"
	default:
		return "unknown"
	}
}

// NavigationType is the kind of move a navigation request asks for.
type NavigationType int

const (
	NavUnknown NavigationType = iota
	NavCurrent
	NavPrevious
	NavNext
	NavNth
)

// String returns a human-readable navigation type.
func (n NavigationType) String() string {
	switch n {
	case NavCurrent:
		return "current"
	case NavPrevious:
		return "previous"
	case NavNext:
		return "next"
	case NavNth:
		return "nth"
	default:
		return "unknown"
	}
}

// Demonstrative is a vague pronoun such as "this" or "it".
type Demonstrative int

const (
	DemonstrativeNone Demonstrative = iota
	DemonstrativeThis
	DemonstrativeThat
	DemonstrativeThese
	DemonstrativeThose
	DemonstrativeIt
)

var demonstratives = map[string]Demonstrative{
	"this":  DemonstrativeThis,
	"that":  DemonstrativeThat,
	"these": DemonstrativeThese,
	"those": DemonstrativeThose,
	"it":    DemonstrativeIt,
}

// DemonstrativeFromWord returns the tag for a lower-cased word, or
// DemonstrativeNone.
func DemonstrativeFromWord(w string) Demonstrative {
	return demonstratives[w]
}

// String returns the word for the demonstrative, or "" for none.
func (d Demonstrative) String() string {
	switch d {
	case DemonstrativeThis:
		return "this"
	case DemonstrativeThat:
		return "that"
	case DemonstrativeThese:
		return "these"
	case DemonstrativeThose:
		return "those"
	case DemonstrativeIt:
		return "it"
	default:
		return ""
	}
}

// Precursor is a verb next to a demonstrative that hints at the intended
// action ("cook this").
type Precursor int

const (
	PrecursorNone Precursor = iota
	PrecursorDo
	PrecursorMake
	PrecursorCook
	PrecursorPrepare
	PrecursorGet
	PrecursorOf
	PrecursorReplace
	PrecursorUse
)

var precursors = map[string]Precursor{
	"do":      PrecursorDo,
	"make":    PrecursorMake,
	"cook":    PrecursorCook,
	"prepare": PrecursorPrepare,
	"get":     PrecursorGet,
	"of":      PrecursorOf,
	"replace": PrecursorReplace,
	"use":     PrecursorUse,
}

// PrecursorFromWord returns the tag for a lower-cased word, or PrecursorNone.
func PrecursorFromWord(w string) Precursor {
	return precursors[w]
}

// String returns the verb for the precursor, or "" for none.
func (p Precursor) String() string {
	switch p {
	case PrecursorDo:
		return "do"
	case PrecursorMake:
		return "make"
	case PrecursorCook:
		return "cook"
	case PrecursorPrepare:
		return "prepare"
	case PrecursorGet:
		return "get"
	case PrecursorOf:
		return "of"
	case PrecursorReplace:
		return "replace"
	case PrecursorUse:
		return "use"
	default:
		return ""
	}
}

// ReferenceKind is the noun naming what a demonstrative points at
// ("this ingredient").
type ReferenceKind int

const (
	KindNone ReferenceKind = iota
	KindStep
	KindIngredient
	KindTool
	KindMethod
)

var referenceKinds = map[string]ReferenceKind{
	"step":       KindStep,
	"ingredient": KindIngredient,
	"tool":       KindTool,
	"method":     KindMethod,
}

// ReferenceKindFromWord returns the tag for a lower-cased word, or KindNone.
func ReferenceKindFromWord(w string) ReferenceKind {
	return referenceKinds[w]
}

// String returns the noun for the kind, or "" for none.
func (k ReferenceKind) String() string {
	switch k {
	case KindStep:
		return "step"
	case KindIngredient:
		return "ingredient"
	case KindTool:
		return "tool"
	case KindMethod:
		return "method"
	default:
		return ""
	}
}

// Reference is a demonstrative phrase found in an utterance. Zero-valued
// fields mean the part was not present.
type Reference struct {
	Precursor     Precursor
	Demonstrative Demonstrative
	Kind          ReferenceKind
}

// Found reports whether a demonstrative was detected.
func (r Reference) Found() bool {
	return r.Demonstrative != DemonstrativeNone
}

// Span returns the phrase the reference was detected from, e.g.
// "cook this ingredient".
func (r Reference) Span() string {
	s := r.Demonstrative.String()
	if p := r.Precursor.String(); p != "" {
		s = p + " " + s
	}
	if k := r.Kind.String(); k != "" {
		s += " " + k
	}
	return s
}
