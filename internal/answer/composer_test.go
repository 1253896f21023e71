package answer

import (
	"strings"
	"testing"

	"github.com/hammamikhairi/stepchat/internal/domain"
)

func ptr(f float64) *float64 { return &f }

func lasagna(t *testing.T) *domain.Recipe {
	t.Helper()
	r, err := domain.NewRecipe("Lasagna",
		[]domain.Ingredient{
			{Name: "lasagna noodles", Quantity: "12"},
			{Name: "olive oil", Quantity: "2", Measurement: "tablespoons"},
			{Name: "oil", Quantity: "1", Measurement: "cup"},
			{Name: "garlic", Quantity: "2", Measurement: "cloves", Preparation: "crushed"},
			{Name: "salt", Quantity: domain.QuantityToTaste},
			{Name: "basil"},
		},
		[]domain.Step{
			{Text: "Preheat the oven to 375 degrees F.", Tools: []string{"oven"}, Methods: []string{"preheat"}},
			{Text: "Bake in the oven for 7 minutes.", Tools: []string{"oven"}, Methods: []string{"bake"},
				Time: domain.StepTime{Duration: ptr(7), Unit: "minute"}},
			{Text: "Boil the noodles for 1 minute.", Ingredients: []string{"lasagna noodles"}, Methods: []string{"boil"},
				Time: domain.StepTime{Duration: ptr(1), Unit: "minute"}},
			{Text: "Stir until thickened, about 2.5 hours.", Methods: []string{"stir", "cook"},
				Time: domain.StepTime{Duration: ptr(2.5), Unit: "hour", Condition: "until thickened"}},
			{Text: "Let it rest until set.", Time: domain.StepTime{Condition: "until set"}},
		})
	if err != nil {
		t.Fatalf("NewRecipe: %v", err)
	}
	return r
}

func TestTime(t *testing.T) {
	c := NewComposer(lasagna(t))

	tests := []struct {
		step int
		want string
	}{
		{0, LineNoTime()},
		{1, "bake for 7 minutes"},
		{2, "boil for 1 minute"},
		{3, "stir and cook until thickened, for about 2.5 hours"},
		{4, "carry out this step until set"},
	}
	for _, tt := range tests {
		if got := c.Time(tt.step); got != tt.want {
			t.Errorf("Time(%d) = %q, want %q", tt.step, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    float64
		unit string
		want string
	}{
		{7, "minute", "7 minutes"},
		{1, "minute", "1 minute"},
		{0.5, "hour", "0.5 hours"},
		{3, "seconds", "3 seconds"},
		{10, "", "10"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d, tt.unit); got != tt.want {
			t.Errorf("formatDuration(%v, %q) = %q, want %q", tt.d, tt.unit, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	c := NewComposer(lasagna(t))
	if got := c.Duration(4); got != LineNoDuration() {
		t.Errorf("Duration(4) = %q", got)
	}
	if got := c.Duration(1); got != "bake for 7 minutes" {
		t.Errorf("Duration(1) = %q", got)
	}
}

func TestLists(t *testing.T) {
	c := NewComposer(lasagna(t))

	want := "Here are the ingredients used in Lasagna:\n1. lasagna noodles\n2. olive oil\n3. oil\n4. garlic\n5. salt\n6. basil"
	if got := c.Ingredients(); got != want {
		t.Errorf("Ingredients() = %q", got)
	}

	want = "Here are the tools used in Lasagna:\n1. oven"
	if got := c.Tools(); got != want {
		t.Errorf("Tools() = %q", got)
	}

	want = "Here are the methods used in Lasagna:\n1. bake\n2. boil\n3. cook\n4. preheat\n5. stir"
	if got := c.Methods(); got != want {
		t.Errorf("Methods() = %q", got)
	}

	want = "Here are the ingredients used in step 3 of Lasagna:\n1. lasagna noodles"
	if got := c.StepIngredients(2); got != want {
		t.Errorf("StepIngredients(2) = %q", got)
	}
	if got := c.StepIngredients(0); got != LineNoStepItems("ingredients") {
		t.Errorf("StepIngredients(0) = %q", got)
	}
	if got := c.StepTools(3); got != LineNoStepItems("tools") {
		t.Errorf("StepTools(3) = %q", got)
	}

	want = "Here are the methods used in step 4 of Lasagna:\n1. stir\n2. cook"
	if got := c.StepMethods(3); got != want {
		t.Errorf("StepMethods(3) = %q", got)
	}
}

func TestStepsAndDirections(t *testing.T) {
	c := NewComposer(lasagna(t))

	got := c.Steps()
	if !strings.HasPrefix(got, "Here are the steps to make Lasagna:\n1. Preheat the oven") {
		t.Errorf("Steps() prefix = %q", got)
	}
	if !strings.HasSuffix(got, "\n5. Let it rest until set.") {
		t.Errorf("Steps() suffix = %q", got)
	}
	if got := c.Directions(1); got != "Bake in the oven for 7 minutes." {
		t.Errorf("Directions(1) = %q", got)
	}
}

func TestQuantity(t *testing.T) {
	c := NewComposer(lasagna(t))

	tests := []struct {
		input string
		want  string
	}{
		{"how much olive oil do I need", "You need 2 tablespoons of olive oil."},
		{"how much oil", "You need 1 cup of oil."},
		{"how many garlic cloves", "You need 2 cloves of garlic, crushed."},
		{"how many lasagna noodles", "You need 12 lasagna noodles."},
		{"how much salt", "Add salt to taste."},
		{"how much basil", "The recipe doesn't say how much basil to use."},
		{"how much sugar", LineDontKnow()},
	}
	for _, tt := range tests {
		if got := c.Quantity(tt.input); got != tt.want {
			t.Errorf("Quantity(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSearchQuery(t *testing.T) {
	got := SearchQuery("What is aluminum foil?")
	want := "https://www.google.com/search?q=What+is+aluminum+foil?"
	if got != want {
		t.Errorf("SearchQuery = %q, want %q", got, want)
	}
}

func TestStepOutOfRangePanics(t *testing.T) {
	c := NewComposer(lasagna(t))
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range step")
		}
	}()
	c.Directions(5)
}

func TestLineWhichOne(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"garlic", "butter"}, "Which one do you mean: garlic or butter?"},
		{[]string{"a", "b", "c"}, "Which one do you mean: a, b or c?"},
	}
	for _, tt := range tests {
		if got := LineWhichOne(tt.in); got != tt.want {
			t.Errorf("LineWhichOne(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
