package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/stepchat/internal/answer"
	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
	"github.com/hammamikhairi/stepchat/internal/storage"
)

func ptr(f float64) *float64 { return &f }

// fiveStepRecipe is a small recipe with one single-ingredient step and one
// two-ingredient step for reference tests.
func fiveStepRecipe(t *testing.T) *domain.Recipe {
	t.Helper()
	r, err := domain.NewRecipe("Garlic Butter Pasta",
		[]domain.Ingredient{
			{Name: "pasta", Quantity: "1", Measurement: "pound"},
			{Name: "butter", Quantity: "4", Measurement: "tablespoons"},
			{Name: "garlic", Quantity: "3", Measurement: "cloves", Preparation: "minced"},
			{Name: "salt", Quantity: domain.QuantityToTaste},
		},
		[]domain.Step{
			{Text: "Preheat the oven to 375 degrees.", Tools: []string{"oven"}, Methods: []string{"preheat"}},
			{Text: "Boil the pasta in a large pot for 8 minutes.", Ingredients: []string{"pasta"},
				Tools: []string{"pot"}, Methods: []string{"boil"},
				Time: domain.StepTime{Duration: ptr(8), Unit: "minute"}},
			{Text: "Stir the butter and garlic in a skillet until fragrant.", Ingredients: []string{"butter", "garlic"},
				Tools: []string{"skillet"}, Methods: []string{"stir"},
				Time: domain.StepTime{Condition: "until fragrant"}},
			{Text: "Toss the pasta with the sauce.", Ingredients: []string{"pasta"}},
			{Text: "Bake until golden brown.", Tools: []string{"oven"}, Methods: []string{"bake"},
				Time: domain.StepTime{Condition: "until golden brown"}},
		})
	if err != nil {
		t.Fatalf("NewRecipe: %v", err)
	}
	return r
}

func setupEngine(t *testing.T, opts ...Option) (*Engine, context.Context) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	store := storage.NewMemoryStore(log)
	return New(store, log, opts...), context.Background()
}

func startSession(t *testing.T, eng *Engine, ctx context.Context) *domain.Session {
	t.Helper()
	s, err := eng.CreateSession(ctx, "owner-1", fiveStepRecipe(t))
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	return s
}

func turn(t *testing.T, eng *Engine, ctx context.Context, id, utterance string) string {
	t.Helper()
	reply, err := eng.HandleTurn(ctx, id, utterance)
	if err != nil {
		t.Fatalf("turn %q: %v", utterance, err)
	}
	return reply
}

func currentStep(t *testing.T, eng *Engine, ctx context.Context, id string) int {
	t.Helper()
	s, err := eng.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	return s.CurrentStep
}

func TestCreateSession(t *testing.T) {
	eng, ctx := setupEngine(t, WithIDGenerator(func() string { return "fixed-id" }))

	tests := []struct {
		name    string
		recipe  *domain.Recipe
		wantErr error
	}{
		{"valid recipe", fiveStepRecipe(t), nil},
		{"no steps", &domain.Recipe{Title: "Empty"}, domain.ErrEmptyRecipe},
		{"nil recipe", nil, domain.ErrEmptyRecipe},
		{"bad numbering", &domain.Recipe{Title: "Bad", Steps: []domain.Step{{Number: 2, Text: "x"}}}, domain.ErrStepNumbering},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := eng.CreateSession(ctx, "owner", tt.recipe)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if session.ID != "fixed-id" {
				t.Fatalf("expected fixed-id, got %q", session.ID)
			}
			if session.Status != domain.SessionActive {
				t.Fatalf("expected active status, got %s", session.Status)
			}
			if session.CurrentStep != 0 {
				t.Fatalf("expected step index 0, got %d", session.CurrentStep)
			}
		})
	}
}

func TestNavigationEndToEnd(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)

	utterances := []string{"Go to the next step", "Go to the 5th step", "Go to the next step"}
	want := []int{1, 4, 4}

	var last string
	for i, u := range utterances {
		last = turn(t, eng, ctx, session.ID, u)
		if got := currentStep(t, eng, ctx, session.ID); got != want[i] {
			t.Fatalf("after %q: current step %d, want %d", u, got, want[i])
		}
	}
	if !strings.HasPrefix(last, answer.LineAtLastStep()) {
		t.Fatalf("expected end-of-recipe message, got %q", last)
	}
	if !strings.HasSuffix(last, "Step 5: Bake until golden brown.") {
		t.Fatalf("expected active step in reply, got %q", last)
	}
}

func TestNavigationReplies(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)

	reply := turn(t, eng, ctx, session.ID, "Proceed to the next step")
	want := "Navigated to step 2 successfully.\nStep 2: Boil the pasta in a large pot for 8 minutes."
	if reply != want {
		t.Fatalf("got %q, want %q", reply, want)
	}

	reply = turn(t, eng, ctx, session.ID, "take me to the last step")
	if currentStep(t, eng, ctx, session.ID) != 4 {
		t.Fatalf("expected last step, got reply %q", reply)
	}

	turn(t, eng, ctx, session.ID, "go to the first step")
	if currentStep(t, eng, ctx, session.ID) != 0 {
		t.Fatal("expected first step")
	}

	turn(t, eng, ctx, session.ID, "go to the third step")
	if currentStep(t, eng, ctx, session.ID) != 2 {
		t.Fatal("expected third step")
	}

	reply = turn(t, eng, ctx, session.ID, "go back")
	if currentStep(t, eng, ctx, session.ID) != 1 || !strings.HasPrefix(reply, answer.LineNavigated(2)) {
		t.Fatalf("go back: got %q", reply)
	}
}

func TestPreviousAtFirstStep(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)

	reply := turn(t, eng, ctx, session.ID, "go to the previous step")
	if got := currentStep(t, eng, ctx, session.ID); got != 0 {
		t.Fatalf("expected step 0, got %d", got)
	}
	if !strings.HasPrefix(reply, answer.LineAtFirstStep()) {
		t.Fatalf("expected first-step message, got %q", reply)
	}
}

func TestNthOutOfRange(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)
	turn(t, eng, ctx, session.ID, "go to step 2")

	tests := []struct {
		input string
		want  string
	}{
		{"Go to the 25th step", answer.LineStepOutOfRange("25", 5)},
		{"go to step 0", answer.LineStepOutOfRange("0", 5)},
		{"navigate to the twentieth step", answer.LineStepOutOfRange("20", 5)},
		{"go to step 99999999999999999999999", "Unable to navigate to step 99999999999999999999999 as it is not within the range of 1 to 5."},
	}
	for _, tt := range tests {
		reply := turn(t, eng, ctx, session.ID, tt.input)
		if got := currentStep(t, eng, ctx, session.ID); got != 1 {
			t.Fatalf("%q moved the pointer to %d", tt.input, got)
		}
		if !strings.HasPrefix(reply, tt.want) {
			t.Errorf("%q: got %q, want prefix %q", tt.input, reply, tt.want)
		}
	}
}

func TestUnknownNavigation(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)

	reply := turn(t, eng, ctx, session.ID, "go")
	if !strings.HasPrefix(reply, answer.LineUnknownNavigation()) {
		t.Fatalf("got %q", reply)
	}
	if currentStep(t, eng, ctx, session.ID) != 0 {
		t.Fatal("unknown navigation moved the pointer")
	}
}

func TestRepeatIsIdempotent(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)
	turn(t, eng, ctx, session.ID, "go to step 3")

	for i := 0; i < 5; i++ {
		reply := turn(t, eng, ctx, session.ID, "repeat")
		if got := currentStep(t, eng, ctx, session.ID); got != 2 {
			t.Fatalf("repeat %d changed step to %d", i, got)
		}
		if reply != "Step 3: Stir the butter and garlic in a skillet until fragrant." {
			t.Fatalf("repeat %d: got %q", i, reply)
		}
	}
}

func TestNavigationStaysInBounds(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)

	utterances := []string{
		"previous", "previous", "next", "next", "next", "next", "next", "next", "next",
		"go to step 99", "go to the last step", "next", "go to the first step", "go back",
		"go to step 3", "repeat", "move on", "advance", "advance", "return to the prior step",
	}
	for _, u := range utterances {
		turn(t, eng, ctx, session.ID, u)
		got := currentStep(t, eng, ctx, session.ID)
		if got < 0 || got >= 5 {
			t.Fatalf("after %q: step %d out of bounds", u, got)
		}
	}
}

func TestStepQuestions(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)
	turn(t, eng, ctx, session.ID, "go to step 2")

	tests := []struct {
		input string
		want  string
	}{
		{"What are the ingredients for this step?", "Here are the ingredients used in step 2 of Garlic Butter Pasta:\n1. pasta"},
		{"what are the methods for this step?", "Here are the methods used in step 2 of Garlic Butter Pasta:\n1. boil"},
		{"What tools do I need for this step?", "Here are the tools used in step 2 of Garlic Butter Pasta:\n1. pot"},
		{"how long does this take", "boil for 8 minutes"},
		{"what do I do in this step", "Boil the pasta in a large pot for 8 minutes."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := turn(t, eng, ctx, session.ID, tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGeneralQuestions(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)

	tests := []struct {
		input string
		want  string
	}{
		{"What are the ingredients?", "Here are the ingredients used in Garlic Butter Pasta:\n1. pasta\n2. butter\n3. garlic\n4. salt"},
		{"what equipment will I use", "Here are the tools used in Garlic Butter Pasta:\n1. oven\n2. pot\n3. skillet"},
		{"how much butter", "You need 4 tablespoons of butter."},
		{"how much salt", "Add salt to taste."},
		{"how much sugar", answer.LineDontKnow()},
		{"How do I do this?", "Preheat the oven to 375 degrees."},
		{"what is this", answer.LineUnresolvedReference()},
		{"What is aluminum foil?", "https://www.google.com/search?q=What+is+aluminum+foil?"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := turn(t, eng, ctx, session.ID, tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReferenceSubstitutionAnswersQuantity(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)
	turn(t, eng, ctx, session.ID, "go to step 2")

	got := turn(t, eng, ctx, session.ID, "how much of this ingredient do I need")
	if got != "You need 1 pound of pasta." {
		t.Fatalf("got %q", got)
	}
}

func TestUnmatchedReferencePhraseFallsBackToSearch(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)
	turn(t, eng, ctx, session.ID, "go to step 2")

	got := turn(t, eng, ctx, session.ID, "what is this cook ingredient")
	if want := answer.SearchQuery("what is this cook ingredient"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReferenceAmbiguity(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)
	turn(t, eng, ctx, session.ID, "go to step 3")

	got := turn(t, eng, ctx, session.ID, "how much of this do I need")
	if got != "Which one do you mean: butter or garlic?" {
		t.Fatalf("got %q", got)
	}
	if currentStep(t, eng, ctx, session.ID) != 2 {
		t.Fatal("disambiguation moved the pointer")
	}
}

func TestHistoryAndSnapshot(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)

	turn(t, eng, ctx, session.ID, "next")
	turn(t, eng, ctx, session.ID, "What are the ingredients?")

	s, err := eng.Status(ctx, session.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(s.History) != 2 || s.History[0] != "next" {
		t.Fatalf("unexpected history %v", s.History)
	}

	s.History[0] = "tampered"
	s.CurrentStep = 4
	again, _ := eng.Status(ctx, session.ID)
	if again.History[0] != "next" || again.CurrentStep != 1 {
		t.Fatal("snapshot shares state with the stored session")
	}
}

func TestEndSession(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)

	if err := eng.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := eng.HandleTurn(ctx, session.ID, "next"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after end, got %v", err)
	}
	if err := eng.EndSession(ctx, session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second end, got %v", err)
	}
}

func TestExpireIdle(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	eng, ctx := setupEngine(t, WithClock(func() time.Time { return now }))

	idle := startSession(t, eng, ctx)
	now = base.Add(10 * time.Minute)
	busy := startSession(t, eng, ctx)

	expired, err := eng.ExpireIdle(ctx, base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != idle.ID {
		t.Fatalf("expected only %s to expire, got %v", idle.ID, expired)
	}
	if expired[0].Status != domain.SessionEnded {
		t.Fatalf("expired session status %s", expired[0].Status)
	}
	if _, err := eng.Status(ctx, idle.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("idle session still present: %v", err)
	}
	if _, err := eng.Status(ctx, busy.ID); err != nil {
		t.Fatalf("busy session was expired: %v", err)
	}
}

func TestConcurrentTurns(t *testing.T) {
	eng, ctx := setupEngine(t)
	session := startSession(t, eng, ctx)

	const workers, turns = 8, 25
	var wg sync.WaitGroup
	errs := make(chan error, workers*turns)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				u := "next"
				if (w+i)%2 == 0 {
					u = "previous"
				}
				if _, err := eng.HandleTurn(ctx, session.ID, u); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("turn failed: %v", err)
	}

	s, err := eng.Status(ctx, session.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(s.History) != workers*turns {
		t.Fatalf("expected %d history entries, got %d", workers*turns, len(s.History))
	}
	if s.CurrentStep < 0 || s.CurrentStep >= 5 {
		t.Fatalf("step %d out of bounds", s.CurrentStep)
	}
}

func TestStoreReadersDuringTurns(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := storage.NewMemoryStore(log)
	eng := New(store, log)
	ctx := context.Background()
	session := startSession(t, eng, ctx)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			active, err := store.ListActive(ctx)
			if err != nil {
				t.Errorf("list: %v", err)
				return
			}
			for _, s := range active {
				_ = s.CurrentStep + len(s.History) + int(s.Status)
			}
		}
	}()

	for i := 0; i < 50; i++ {
		u := "next"
		if i%3 == 0 {
			u = "previous"
		}
		turn(t, eng, ctx, session.ID, u)
	}
	if err := eng.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	close(done)
	wg.Wait()
}
