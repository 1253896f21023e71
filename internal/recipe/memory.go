// Package recipe provides recipe source implementations: a web scraper
// for JSON-LD recipe pages, a read-through cache, and built-in samples.
package recipe

import (
	"context"
	"sort"
	"sync"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*MemorySource)(nil)

// MemorySource holds recipes in memory. Safe for concurrent use.
type MemorySource struct {
	mu      sync.RWMutex
	recipes map[string]*domain.Recipe
	log     *logger.Logger
}

// NewMemorySource creates a recipe source preloaded with built-in recipes.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := &MemorySource{
		recipes: make(map[string]*domain.Recipe),
		log:     log,
	}
	src.seed()
	return src
}

// Keys returns the references of all stored recipes, sorted.
func (s *MemorySource) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.recipes))
	for k := range s.recipes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fetch returns the recipe stored under ref.
func (s *MemorySource) Fetch(ctx context.Context, ref string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[ref]
	if !ok {
		s.log.Debug("recipe not found: %s", ref)
		return nil, domain.ErrNotFound
	}
	return r, nil
}

// Add stores recipe under ref, replacing any previous entry.
func (s *MemorySource) Add(ref string, recipe *domain.Recipe) error {
	if err := recipe.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[ref] = recipe
	s.log.Debug("stored recipe %q as %s", recipe.Title, ref)
	return nil
}

// seed populates the source with built-in recipes. They go through the
// same parser as scraped pages, so samples exercise the real pipeline.
func (s *MemorySource) seed() {
	for _, sm := range []sample{chickenAlfredo, vegetableStirFry} {
		ings := ParseIngredients(sm.ingredients)
		names := make([]string, len(ings))
		for i, ing := range ings {
			names[i] = ing.Name
		}
		r, err := domain.NewRecipe(sm.title, ings, ParseSteps(sm.instructions, names))
		if err != nil {
			s.log.Error("seeding %s: %v", sm.key, err)
			continue
		}
		s.recipes[sm.key] = r
	}
	s.log.Debug("seeded %d recipes", len(s.recipes))
}

// sample is a built-in recipe in raw scraped form.
type sample struct {
	key          string
	title        string
	ingredients  []string
	instructions []string
}

var chickenAlfredo = sample{
	key:   "chicken-alfredo",
	title: "Chicken Alfredo",
	ingredients: []string{
		"8 ounces spaghetti",
		"2 pieces chicken breast",
		"1 cup creme fraiche",
		"1 cup gruyere cheese, grated",
		"3 tablespoons margarine",
		"4 cloves garlic, minced",
		"1 tablespoon extra-virgin olive oil",
		"salt and black pepper to taste",
	},
	instructions: []string{
		"Bring a large pot of salted water to a boil for the spaghetti.",
		"Season the chicken breast with salt and black pepper on both sides.",
		"Heat olive oil in a skillet over medium-high heat. Cook the chicken for 12 minutes until golden and cooked through.",
		"Drop the spaghetti into the boiling water and cook for 10 minutes until al dente. Drain, reserving a cup of pasta water.",
		"In the same skillet, melt margarine over medium heat. Stir in garlic and cook for 1 minute until fragrant.",
		"Stir in the creme fraiche and simmer for 3 minutes until it coats the back of a spoon.",
		"Take the skillet off the heat. Stir in the gruyere cheese until melted and smooth.",
		"Slice the chicken. Toss the spaghetti into the sauce, top with the chicken and serve on a plate.",
	},
}

var vegetableStirFry = sample{
	key:   "vegetable-stir-fry",
	title: "Vegetable Stir Fry",
	ingredients: []string{
		"1 bell pepper, sliced",
		"2 cups broccoli florets",
		"1 carrot, julienned",
		"1 cup snap peas",
		"3 cloves garlic, minced",
		"1 tablespoon fresh ginger, grated",
		"2 tablespoons soy sauce",
		"1 tablespoon sesame oil",
		"2 tablespoons vegetable oil",
		"1 teaspoon cornstarch",
	},
	instructions: []string{
		"Mix the soy sauce, sesame oil and cornstarch in a bowl with 2 tablespoons of water.",
		"Heat the vegetable oil in a skillet on high heat until it just starts to smoke.",
		"Add broccoli florets and carrot and stir for 2 minutes.",
		"Add bell pepper and snap peas and cook for 2 minutes until crisp-tender.",
		"Push the vegetables aside, add garlic and ginger and stir for 30 seconds until fragrant.",
		"Pour the sauce over everything and cook for 1 minute until glossy. Serve on a plate.",
	},
}
