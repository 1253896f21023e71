package conversation

import "strings"

var ordinalBase = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9,
	"tenth": 10, "eleventh": 11, "twelfth": 12, "thirteenth": 13,
	"fourteenth": 14, "fifteenth": 15, "sixteenth": 16, "seventeenth": 17,
	"eighteenth": 18, "nineteenth": 19,
}

var ordinalTens = map[string]int{
	"twentieth": 20, "thirtieth": 30, "fortieth": 40, "fiftieth": 50,
	"sixtieth": 60, "seventieth": 70, "eightieth": 80, "ninetieth": 90,
}

// cardinalTens prefixes compound ordinals: "twenty" in "twenty-first".
var cardinalTens = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// ordinalValue converts an ordinal word ("third", "twentieth",
// "twenty-first") to its number. It returns 0 for anything else.
func ordinalValue(word string) int {
	if v, ok := ordinalBase[word]; ok {
		return v
	}
	if v, ok := ordinalTens[word]; ok {
		return v
	}
	tens, unit, ok := strings.Cut(word, "-")
	if !ok {
		return 0
	}
	t, ok := cardinalTens[tens]
	if !ok {
		return 0
	}
	u := ordinalBase[unit]
	if u == 0 || u > 9 {
		return 0
	}
	return t + u
}
