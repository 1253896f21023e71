package conversation

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

func pastaRecipe(t *testing.T) *domain.Recipe {
	t.Helper()
	r, err := domain.NewRecipe("Garlic Butter Pasta",
		[]domain.Ingredient{
			{Name: "pasta", Quantity: "1", Measurement: "pound"},
			{Name: "garlic", Quantity: "4", Measurement: "cloves", Preparation: "minced"},
			{Name: "butter", Quantity: "2", Measurement: "tablespoons"},
			{Name: "salt", Quantity: domain.QuantityToTaste},
		},
		[]domain.Step{
			{Text: "Preheat the oven to 350 degrees.", Tools: []string{"oven"}, Methods: []string{"preheat"}},
			{Text: "Boil the pasta in a pot.", Ingredients: []string{"pasta"}, Tools: []string{"pot"}, Methods: []string{"boil"}},
			{Text: "Stir the garlic and butter in a skillet.", Ingredients: []string{"garlic", "butter"}, Tools: []string{"skillet"}, Methods: []string{"stir"}},
		})
	if err != nil {
		t.Fatalf("NewRecipe: %v", err)
	}
	return r
}

func TestExtractReference(t *testing.T) {
	tests := []struct {
		input string
		want  domain.Reference
	}{
		{"how do i cook this ingredient", domain.Reference{
			Precursor: domain.PrecursorCook, Demonstrative: domain.DemonstrativeThis, Kind: domain.KindIngredient}},
		{"How do I do this?", domain.Reference{
			Precursor: domain.PrecursorDo, Demonstrative: domain.DemonstrativeThis}},
		{"what is this", domain.Reference{Demonstrative: domain.DemonstrativeThis}},
		{"this cook ingredient", domain.Reference{
			Precursor: domain.PrecursorCook, Demonstrative: domain.DemonstrativeThis, Kind: domain.KindIngredient}},
		{"what about it", domain.Reference{Demonstrative: domain.DemonstrativeIt}},
		{"can I use that tool.", domain.Reference{
			Precursor: domain.PrecursorUse, Demonstrative: domain.DemonstrativeThat, Kind: domain.KindTool}},
		{"Those steps", domain.Reference{Demonstrative: domain.DemonstrativeThose}},
		{"no pronoun here", domain.Reference{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ExtractReference(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractReference(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestReferenceSpan(t *testing.T) {
	ref := ExtractReference("how do i cook this ingredient")
	if got := ref.Span(); got != "cook this ingredient" {
		t.Errorf("Span() = %q", got)
	}
	if got := ExtractReference("what is it").Span(); got != "it" {
		t.Errorf("Span() = %q", got)
	}
}

func TestResolve(t *testing.T) {
	recipe := pastaRecipe(t)
	res := NewResolver(logger.New(logger.LevelOff, nil))

	tests := []struct {
		name       string
		input      string
		step       int
		outcome    Outcome
		text       string
		candidates []string
	}{
		{"no reference", "what is the temperature", 0, NoReference, "what is the temperature", nil},
		{"single ingredient", "how do i cook this ingredient", 1, Substituted, "how do i cook pasta", nil},
		{"single tool by precursor", "how hot should I use this?", 0, Substituted, "how hot should I use oven?", nil},
		{"tool kind after of", "what is the size of this tool", 1, Substituted, "what is the size of pot", nil},
		{"ambiguous ingredients", "how long do I cook this?", 2, Ambiguous, "how long do I cook this?", []string{"garlic", "butter"}},
		{"do answers with the step", "How do I do this?", 0, DirectAnswer, "Preheat the oven to 350 degrees.", nil},
		{"bare demonstrative", "what is this", 0, Unresolved, "what is this", nil},
		{"no candidate in step", "how do i cook this ingredient", 0, Unresolved, "how do i cook this ingredient", nil},
		{"precursor after demonstrative", "how long is this cook ingredient", 1, NotSubstituted, "how long is this cook ingredient", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := res.Resolve(tt.input, recipe, tt.step)
			if got.Outcome != tt.outcome {
				t.Fatalf("outcome = %s, want %s", got.Outcome, tt.outcome)
			}
			if got.Text != tt.text {
				t.Errorf("text = %q, want %q", got.Text, tt.text)
			}
			if diff := cmp.Diff(tt.candidates, got.Candidates); diff != "" {
				t.Errorf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindCandidates(t *testing.T) {
	recipe := pastaRecipe(t)
	got := FindCandidates(recipe, recipe.Steps[2].Text)
	want := Candidates{
		Ingredients: []string{"garlic", "butter"},
		Tools:       []string{"skillet"},
		Methods:     []string{"stir"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindCandidates mismatch (-want +got):\n%s", diff)
	}
}
