package recipe

import (
	"github.com/tidwall/gjson"

	"github.com/hammamikhairi/stepchat/internal/domain"
)

// ExtractJSONLD returns the first schema.org Recipe object found in the
// given JSON-LD script bodies. Pages wrap the recipe in many ways: a bare
// object, a top-level array, or an "@graph" list; all are searched.
// Scripts that are not valid JSON are skipped.
func ExtractJSONLD(scripts []string) (gjson.Result, error) {
	for _, s := range scripts {
		if !gjson.Valid(s) {
			continue
		}
		if r, ok := findRecipe(gjson.Parse(s)); ok {
			return r, nil
		}
	}
	return gjson.Result{}, domain.ErrNoRecipe
}

func findRecipe(node gjson.Result) (gjson.Result, bool) {
	switch {
	case node.IsArray():
		var found gjson.Result
		var ok bool
		node.ForEach(func(_, v gjson.Result) bool {
			found, ok = findRecipe(v)
			return !ok
		})
		return found, ok
	case node.IsObject():
		if isRecipeType(field(node, "@type")) {
			return node, true
		}
		if graph := field(node, "@graph"); graph.Exists() {
			return findRecipe(graph)
		}
	}
	return gjson.Result{}, false
}

// isRecipeType accepts "@type": "Recipe" as well as lists like
// ["Recipe", "NewsArticle"].
func isRecipeType(t gjson.Result) bool {
	if t.IsArray() {
		for _, v := range t.Array() {
			if v.String() == "Recipe" {
				return true
			}
		}
		return false
	}
	return t.String() == "Recipe"
}

// field looks up a key by iterating the object. gjson paths treat a leading
// "@" as a modifier, so "@type" cannot be fetched with Get.
func field(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
			return false
		}
		return true
	})
	return out
}
