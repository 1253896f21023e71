// Package answer composes replies. lines.go holds every fixed reply string.
// Edit this file to change the assistant's wording. Keep lines short;
// transports render them verbatim.
package answer

import (
	"fmt"
	"strings"
)

// ── Session lifecycle ────────────────────────────────────────────

// LineGreeting is sent once a recipe has been resolved for a user.
func LineGreeting(title string) string {
	return fmt.Sprintf("Alright. So let's start working with %q.\nWould you like to start with the ingredients list or the recipe steps?", title)
}

func LineConversationEnded() string {
	return "Conversation ended."
}

func LineAskForURL() string {
	return "Please provide a valid AllRecipes URL."
}

func LineNoRecipeFound() string {
	return "Could not find a valid recipe in the provided URL."
}

func LineFetchFailed() string {
	return "Something went wrong while fetching that recipe. Try again in a moment."
}

func LineSessionExpired(title string) string {
	return fmt.Sprintf("We stopped working on %q because it went quiet. Send a recipe URL to start again.", title)
}

func LineNoSession() string {
	return "No active recipe. Send an AllRecipes URL to start."
}

func LineSomethingWrong() string {
	return "Something went wrong on my side. Please try that again."
}

func LineHelp() string {
	return `Send an AllRecipes URL to start. Then try:
  "next", "previous", "repeat", "go to step 3", "take me to the last step"
  "what are the ingredients?", "show me the steps", "what tools do I need?"
  "what are the ingredients for this step?", "how long for this step?"
  "how much butter?", "how do I do this?"
Say "stop" to end the conversation.`
}

// ── Navigation ───────────────────────────────────────────────────

func LineNavigated(step int) string {
	return fmt.Sprintf("Navigated to step %d successfully.", step)
}

func LineAtFirstStep() string {
	return "Unable to navigate to previous step as we're already at the first step."
}

func LineAtLastStep() string {
	return "Unable to navigate to next step as we've reached the end of the recipe."
}

func LineStepOutOfRange(step string, total int) string {
	return fmt.Sprintf("Unable to navigate to step %s as it is not within the range of 1 to %d.", step, total)
}

func LineNoStepNumber(total int) string {
	return fmt.Sprintf("I couldn't tell which step you meant. Pick a step from 1 to %d.", total)
}

func LineUnknownNavigation() string {
	return `I'm not sure where you want to go. Try "next", "previous", "repeat" or "go to step 3".`
}

// LineActiveStep shows the step the user is on after a navigation turn.
func LineActiveStep(step int, text string) string {
	return fmt.Sprintf("Step %d: %s", step, text)
}

// ── References ───────────────────────────────────────────────────

// LineWhichOne asks the user to pick between candidate subjects. The
// candidates are listed verbatim.
func LineWhichOne(candidates []string) string {
	return fmt.Sprintf("Which one do you mean: %s?", joinOr(candidates))
}

func LineUnresolvedReference() string {
	return "I don't know what you're referring to."
}

// ── Recipe facts ─────────────────────────────────────────────────

func LineDontKnow() string {
	return "I don't know that information about this recipe."
}

func LineNoStepItems(kind string) string {
	return fmt.Sprintf("There are no %s for this step.", kind)
}

func LineNoRecipeItems(kind, title string) string {
	return fmt.Sprintf("There are no %s listed for %s.", kind, title)
}

func LineNoTime() string {
	return "There is no time specification for this step."
}

func LineNoDuration() string {
	return "I don't know how long this step takes."
}

// LineQuantity answers "how much" for one ingredient.
func LineQuantity(ing string, quantity, measurement, preparation string) string {
	var b strings.Builder
	b.WriteString("You need ")
	b.WriteString(quantity)
	if measurement != "" {
		fmt.Fprintf(&b, " %s of", measurement)
	}
	fmt.Fprintf(&b, " %s", ing)
	if preparation != "" {
		fmt.Fprintf(&b, ", %s", preparation)
	}
	b.WriteString(".")
	return b.String()
}

func LineToTaste(ing string) string {
	return fmt.Sprintf("Add %s to taste.", ing)
}

func LineQuantityUnknown(ing string) string {
	return fmt.Sprintf("The recipe doesn't say how much %s to use.", ing)
}

// ── Status ───────────────────────────────────────────────────────

func LineStatus(step, total int, title string) string {
	return fmt.Sprintf("Step %d of %d, working on %s.", step, total, title)
}

// ── Helpers ──────────────────────────────────────────────────────

func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " or " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + " or " + items[len(items)-1]
}
