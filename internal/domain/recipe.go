// Package domain defines the core types and interfaces for the recipe assistant.
// All other packages depend on domain; domain depends on nothing.
package domain

import (
	"fmt"
	"sort"
)

// QuantityToTaste is the quantity sentinel for ingredients measured by taste.
const QuantityToTaste = "to taste"

// Recipe is the normalized view of one parsed recipe. A Recipe is never
// mutated after construction and may be shared by any number of sessions.
type Recipe struct {
	Title       string       `json:"title"`
	Ingredients []Ingredient `json:"ingredients"`
	Tools       []string     `json:"tools"`
	Methods     []string     `json:"methods"`
	Steps       []Step       `json:"steps"`
}

// Ingredient is a single ingredient line. Optional fields are empty when absent.
type Ingredient struct {
	Name        string `json:"name"`
	Quantity    string `json:"quantity,omitempty"` // "2", "1/2", or QuantityToTaste
	Measurement string `json:"measurement,omitempty"`
	Descriptor  string `json:"descriptor,omitempty"`  // "fresh", "extra-virgin"
	Preparation string `json:"preparation,omitempty"` // "finely chopped"
}

// Step is one instruction of a recipe.
type Step struct {
	Number      int      `json:"step_number"` // 1-based, matches position
	Text        string   `json:"text"`
	Ingredients []string `json:"ingredients"`
	Tools       []string `json:"tools"`
	Methods     []string `json:"methods"`
	Time        StepTime `json:"time"`
}

// StepTime is the timing attached to a step. A nil Duration and empty
// Unit/Condition mean the value is absent.
type StepTime struct {
	Duration  *float64 `json:"duration"`
	Unit      string   `json:"unit,omitempty"`
	Condition string   `json:"condition,omitempty"` // "until golden brown"
}

// IsZero reports whether the step has neither a duration nor a condition.
func (t StepTime) IsZero() bool {
	return t.Duration == nil && t.Condition == ""
}

// NewRecipe builds a record from parsed parts. Steps are renumbered to match
// their position and the recipe-wide tool and method sets are derived from
// the steps so the union invariant always holds.
func NewRecipe(title string, ingredients []Ingredient, steps []Step) (*Recipe, error) {
	numbered := make([]Step, len(steps))
	for i, s := range steps {
		s.Number = i + 1
		numbered[i] = s
	}

	r := &Recipe{
		Title:       title,
		Ingredients: ingredients,
		Tools:       union(numbered, func(s Step) []string { return s.Tools }),
		Methods:     union(numbered, func(s Step) []string { return s.Methods }),
		Steps:       numbered,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the structural invariants of a record.
func (r *Recipe) Validate() error {
	if r == nil || len(r.Steps) == 0 {
		return ErrEmptyRecipe
	}
	for i, s := range r.Steps {
		if s.Number != i+1 {
			return fmt.Errorf("step at position %d has number %d: %w", i+1, s.Number, ErrStepNumbering)
		}
	}
	return nil
}

// IngredientNames returns the distinct ingredient names in recipe order.
func (r *Recipe) IngredientNames() []string {
	seen := make(map[string]bool, len(r.Ingredients))
	out := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if ing.Name == "" || seen[ing.Name] {
			continue
		}
		seen[ing.Name] = true
		out = append(out, ing.Name)
	}
	return out
}

// union collects the distinct values selected from every step, sorted so the
// enumerated presentation is stable.
func union(steps []Step, pick func(Step) []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, s := range steps {
		for _, v := range pick(s) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}
