package recipe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/tidwall/gjson"

	"github.com/hammamikhairi/stepchat/internal/domain"
)

// fuzzyThreshold is the minimum similarity ratio for a word in a step to
// count as a mention of an ingredient.
const fuzzyThreshold = 0.6

var (
	orToTastePattern = regexp.MustCompile(`(?i),?\s*or to taste`)
	toTastePattern   = regexp.MustCompile(`(?i)\bto taste\b`)
	andPattern       = regexp.MustCompile(`\s+and\s+`)

	// "1 (8 ounce) package cream cheese"
	parenPattern = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d+\.\d+|\d+)?\s*\((.*?)\)\s*(.*)$`)

	// "2 cups flour", "cloves garlic", "salt"
	measurePattern = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d+\.\d+|\d+)?\s*(\b(?:cups?|teaspoons?|tbsp|tablespoons?|oz|ounces?|pounds?|g|grams|kg|kilograms|ml|milliliters|l|liters|pinch(?:es)?|dash(?:es)?|slices?|cloves?|packages?|pieces?)\b)?\s*(.*)$`)

	descriptorPattern  = regexp.MustCompile(`(?i)\b(fresh|extra-virgin|whole wheat|lean|package|packaged|packed|box|boxed|jar|jarred|jars)\b`)
	preparationPattern = regexp.MustCompile(`(?i)\b(finely chopped|finely shredded|chopped|shredded|minced|sliced|diced|grated|ground|julienned|peeled|squeezed|dried)\b`)

	toolsPattern   = regexp.MustCompile(`\b(oven|pot|skillet|baking pan|bowl|plate|aluminum foil|foil|tray|sheet|whisk|spatula|strainer|ladle|colander|saucepan)\b`)
	methodsPattern = regexp.MustCompile(`\b(preheat|boil|cook|stir|mix|layer|bake|drain|broil|poach|roast|grill|steam)\b`)

	durationPattern  = regexp.MustCompile(`(?i)(\d+/\d+|\d+\.\d+|\d+)\s*(second|minute|hour)s?\b`)
	conditionPattern = regexp.MustCompile(`(?i)\b(until\s+[^.,;:!?]+)`)
)

// Parse builds a recipe from a schema.org Recipe JSON-LD object.
func Parse(node gjson.Result) (*domain.Recipe, error) {
	title := strings.TrimSpace(node.Get("name").String())
	if title == "" {
		title = "Unknown Title"
	}

	var lines []string
	node.Get("recipeIngredient").ForEach(func(_, v gjson.Result) bool {
		lines = append(lines, v.String())
		return true
	})
	ingredients := ParseIngredients(lines)

	names := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		names = append(names, ing.Name)
	}
	steps := ParseSteps(instructionTexts(node.Get("recipeInstructions")), names)

	r, err := domain.NewRecipe(title, ingredients, steps)
	if err != nil {
		return nil, fmt.Errorf("building %q: %w", title, err)
	}
	return r, nil
}

// instructionTexts flattens recipeInstructions, which may be a single
// string, a list of strings, HowToStep objects, or HowToSection objects
// holding more steps.
func instructionTexts(node gjson.Result) []string {
	var out []string
	switch {
	case node.IsArray():
		node.ForEach(func(_, v gjson.Result) bool {
			out = append(out, instructionTexts(v)...)
			return true
		})
	case node.IsObject():
		if items := node.Get("itemListElement"); items.Exists() {
			return instructionTexts(items)
		}
		if t := strings.TrimSpace(node.Get("text").String()); t != "" {
			out = append(out, t)
		}
	case node.Type == gjson.String:
		if t := strings.TrimSpace(node.String()); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseIngredients splits raw ingredient lines into structured
// ingredients. A line may name several ingredients joined by "and"; they
// share the line's quantity when they have none of their own.
func ParseIngredients(lines []string) []domain.Ingredient {
	var out []domain.Ingredient
	for _, line := range lines {
		item := strings.TrimSpace(line)
		quantity := ""
		if orToTastePattern.MatchString(item) || toTastePattern.MatchString(item) {
			item = orToTastePattern.ReplaceAllString(item, "")
			item = toTastePattern.ReplaceAllString(item, "")
			quantity = domain.QuantityToTaste
		}

		for _, part := range andPattern.Split(item, -1) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			var name, measurement string
			if m := parenPattern.FindStringSubmatch(part); m != nil {
				name = m[3]
				measurement = strings.TrimSpace(m[2])
				if m[1] != "" {
					quantity = m[1]
				} else if quantity == "" {
					quantity = "1"
				}
			} else {
				m := measurePattern.FindStringSubmatch(part)
				name = m[3]
				if m[1] != "" {
					quantity = m[1]
				}
				measurement = m[2]
			}

			ing := domain.Ingredient{Quantity: quantity, Measurement: measurement}
			ing.Name, ing.Descriptor = cut(name, descriptorPattern)
			ing.Name, ing.Preparation = cut(ing.Name, preparationPattern)
			if ing.Name == "" {
				continue
			}
			out = append(out, ing)
		}
	}
	return out
}

// cut removes the first match of re from s and returns the cleaned rest
// together with the lower-cased match.
func cut(s string, re *regexp.Regexp) (rest, match string) {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return cleanName(s), ""
	}
	match = strings.ToLower(s[loc[0]:loc[1]])
	return cleanName(s[:loc[0]] + " " + s[loc[1]:]), match
}

func cleanName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return r == ',' || r == '-' || r == ';' || unicode.IsSpace(r)
	})
}

// ParseSteps derives the tools, methods, ingredient mentions and timing of
// each instruction. Ingredients are matched by substring first, then by a
// fuzzy word match so "tomatoes" finds "tomato".
func ParseSteps(instructions []string, ingredientNames []string) []domain.Step {
	steps := make([]domain.Step, 0, len(instructions))
	for i, text := range instructions {
		lower := strings.ToLower(text)
		steps = append(steps, domain.Step{
			Number:      i + 1,
			Text:        text,
			Ingredients: stepIngredients(lower, ingredientNames),
			Tools:       distinct(toolsPattern.FindAllString(lower, -1)),
			Methods:     distinct(methodsPattern.FindAllString(lower, -1)),
			Time:        ParseTime(text),
		})
	}
	return steps
}

func stepIngredients(lower string, names []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, n := range names {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			add(n)
		}
	}

	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		target := strings.ToLower(n)
		for _, w := range words {
			if similarity(w, target) >= fuzzyThreshold {
				add(n)
				break
			}
		}
	}
	return out
}

// similarity is the Levenshtein distance normalised to [0,1], where 1
// means identical.
func similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func distinct(items []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}

// ParseTime extracts the first "<number> <second|minute|hour>" duration and
// the first "until ..." condition from an instruction. Fractions such as
// "1/2 hour" are supported. The unit is stored singular.
func ParseTime(text string) domain.StepTime {
	var t domain.StepTime
	if m := durationPattern.FindStringSubmatch(text); m != nil {
		if d, ok := parseNumber(m[1]); ok {
			t.Duration = &d
			t.Unit = strings.ToLower(m[2])
		}
	}
	if m := conditionPattern.FindStringSubmatch(text); m != nil {
		t.Condition = strings.TrimSpace(strings.ToLower(m[1]))
	}
	return t
}

func parseNumber(s string) (float64, bool) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
