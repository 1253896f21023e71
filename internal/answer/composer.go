package answer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/stepchat/internal/domain"
)

// searchURL is the prefix of the search fallback. Callers depend on the
// exact shape, so the query is not escaped beyond spaces.
const searchURL = "https://www.google.com/search?q="

// Composer formats facts about one recipe into reply text. It never
// mutates the recipe.
type Composer struct {
	recipe *domain.Recipe
}

// NewComposer creates a composer over recipe.
func NewComposer(recipe *domain.Recipe) *Composer {
	return &Composer{recipe: recipe}
}

// Ingredients lists every ingredient of the recipe.
func (c *Composer) Ingredients() string {
	names := make([]string, len(c.recipe.Ingredients))
	for i, ing := range c.recipe.Ingredients {
		names[i] = ing.Name
	}
	return c.recipeList("ingredients", names)
}

// StepIngredients lists the ingredients referenced by step i.
func (c *Composer) StepIngredients(i int) string {
	return c.stepList(i, "ingredients", c.step(i).Ingredients)
}

// Tools lists every tool of the recipe.
func (c *Composer) Tools() string {
	return c.recipeList("tools", c.recipe.Tools)
}

// StepTools lists the tools referenced by step i.
func (c *Composer) StepTools(i int) string {
	return c.stepList(i, "tools", c.step(i).Tools)
}

// Methods lists every cooking method of the recipe.
func (c *Composer) Methods() string {
	return c.recipeList("methods", c.recipe.Methods)
}

// StepMethods lists the methods referenced by step i.
func (c *Composer) StepMethods(i int) string {
	return c.stepList(i, "methods", c.step(i).Methods)
}

// Steps renders every step, numbered.
func (c *Composer) Steps() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are the steps to make %s:", c.recipe.Title)
	for _, s := range c.recipe.Steps {
		fmt.Fprintf(&b, "\n%d. %s", s.Number, s.Text)
	}
	return b.String()
}

// Directions returns the raw text of step i.
func (c *Composer) Directions(i int) string {
	return c.step(i).Text
}

// Time describes how long step i takes, e.g. "bake for 7 minutes" or
// "simmer until thickened, for about 10 minutes".
func (c *Composer) Time(i int) string {
	s := c.step(i)
	t := s.Time
	if t.IsZero() {
		return LineNoTime()
	}

	action := "carry out this step"
	if len(s.Methods) > 0 {
		action = strings.Join(s.Methods, " and ")
	}

	switch {
	case t.Duration != nil && t.Condition != "":
		return fmt.Sprintf("%s %s, for about %s", action, t.Condition, formatDuration(*t.Duration, t.Unit))
	case t.Duration != nil:
		return fmt.Sprintf("%s for %s", action, formatDuration(*t.Duration, t.Unit))
	default:
		return fmt.Sprintf("%s %s", action, t.Condition)
	}
}

// Duration answers "how long" for step i. Unlike Time it only reports a
// measured duration.
func (c *Composer) Duration(i int) string {
	if c.step(i).Time.Duration == nil {
		return LineNoDuration()
	}
	return c.Time(i)
}

// Quantity answers "how much" for the ingredient named in utterance. When
// several ingredient names occur, the longest wins so "olive oil" beats
// "oil".
func (c *Composer) Quantity(utterance string) string {
	lower := strings.ToLower(utterance)
	var found *domain.Ingredient
	for i := range c.recipe.Ingredients {
		ing := &c.recipe.Ingredients[i]
		if ing.Name == "" || !strings.Contains(lower, strings.ToLower(ing.Name)) {
			continue
		}
		if found == nil || len(ing.Name) > len(found.Name) {
			found = ing
		}
	}

	switch {
	case found == nil:
		return LineDontKnow()
	case found.Quantity == domain.QuantityToTaste:
		return LineToTaste(found.Name)
	case found.Quantity == "":
		return LineQuantityUnknown(found.Name)
	default:
		return LineQuantity(found.Name, found.Quantity, found.Measurement, found.Preparation)
	}
}

// SearchQuery builds the web search fallback URL for text.
func SearchQuery(text string) string {
	return searchURL + strings.ReplaceAll(text, " ", "+")
}

// step returns step i. An index outside the recipe is a caller bug: the
// session clamps its pointer before asking.
func (c *Composer) step(i int) domain.Step {
	if i < 0 || i >= len(c.recipe.Steps) {
		panic(fmt.Sprintf("answer: step index %d out of range [0,%d)", i, len(c.recipe.Steps)))
	}
	return c.recipe.Steps[i]
}

func (c *Composer) recipeList(kind string, items []string) string {
	if len(items) == 0 {
		return LineNoRecipeItems(kind, c.recipe.Title)
	}
	return fmt.Sprintf("Here are the %s used in %s:\n%s", kind, c.recipe.Title, enumerate(items))
}

func (c *Composer) stepList(i int, kind string, items []string) string {
	if len(items) == 0 {
		return LineNoStepItems(kind)
	}
	return fmt.Sprintf("Here are the %s used in step %d of %s:\n%s", kind, i+1, c.recipe.Title, enumerate(items))
}

func enumerate(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, it)
	}
	return strings.Join(lines, "\n")
}

// formatDuration renders 7 "minute" as "7 minutes" and 1 "minute" as
// "1 minute". Units that already end in "s" are left alone.
func formatDuration(d float64, unit string) string {
	n := strconv.FormatFloat(d, 'f', -1, 64)
	if unit == "" {
		return n
	}
	if d != 1 && !strings.HasSuffix(unit, "s") {
		unit += "s"
	}
	return n + " " + unit
}
