// Package main provides a tool to seed the plant store with demo plants.
//
// It signs in (restoring the persisted session when there is one) and adds
// plants with a scattering of care dates over the last few weeks, which is
// enough to make the calendar grid interesting.
//
// Usage:
//
//	DATA_PATH=~/PlantCare/data go run ./cmd/seed
//	STORAGE_DRIVER=sqlite go run ./cmd/seed --count 12 --days 60
//	go run ./cmd/seed --anonymous  # Seed a fresh anonymous user
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/listenupapp/plantcare/internal/auth"
	"github.com/listenupapp/plantcare/internal/config"
	"github.com/listenupapp/plantcare/internal/di/providers"
	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/logger"
	"github.com/listenupapp/plantcare/internal/service"
)

var (
	count     = flag.Int("count", 8, "Number of plants to create")
	days      = flag.Int("days", 45, "How many days back care dates may fall")
	anonymous = flag.Bool("anonymous", false, "Sign in as a new anonymous user instead of restoring the session")
)

var plantNames = []string{
	"Monstera Deliciosa",
	"Boston Fern",
	"Aloe Vera",
	"Snake Plant",
	"Fiddle Leaf Fig",
	"Pothos",
	"Peace Lily",
	"ZZ Plant",
	"Calathea Orbifolia",
	"String of Pearls",
	"Rubber Plant",
	"Bird of Paradise",
}

func main() {
	flag.Parse()

	// Storage settings come from the environment and .env only.
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	ctx := context.Background()

	fmt.Printf("Opening %s store at: %s\n", cfg.Storage.Driver, cfg.Data.Path)
	st, err := providers.OpenStore(ctx, cfg, lg.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	session := auth.NewSessionService(st, lg.Logger)
	user, err := signIn(ctx, session)
	if err != nil {
		log.Fatalf("Failed to sign in: %v", err)
	}
	fmt.Printf("Seeding plants for %s (%s)\n", user.DisplayName(), user.ID)

	plants := service.NewPlantService(st, lg.Logger)
	state := plants.SetActiveUser(ctx, user)
	if state.Err != nil {
		log.Fatalf("Failed to load plants: %v", state.Err)
	}

	today := time.Now().UTC()
	for i := range *count {
		draft := domain.PlantDraft{
			Name:            plantNames[i%len(plantNames)],
			WateredDates:    randomDates(today, *days, 0.25),
			FertilizedDates: randomDates(today, *days, 0.05),
			TreatmentDates:  randomDates(today, *days, 0.03),
		}
		if i >= len(plantNames) {
			draft.Name = fmt.Sprintf("%s #%d", draft.Name, i/len(plantNames)+1)
		}

		plant, _, err := plants.Add(ctx, draft)
		if err != nil {
			log.Fatalf("Failed to add %q: %v", draft.Name, err)
		}
		fmt.Printf("  + %-24s watered %2d, fertilized %d, treated %d\n",
			plant.Name, len(plant.WateredDates), len(plant.FertilizedDates), len(plant.TreatmentDates))
	}

	fmt.Printf("Done. %d plants in store.\n", len(plants.State().Plants))
}

func signIn(ctx context.Context, session *auth.SessionService) (*domain.User, error) {
	if !*anonymous {
		user, err := session.Restore(ctx)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
		return session.SignInWithGoogle(ctx)
	}
	return session.SignInAnonymously(ctx)
}

// randomDates picks each of the last n days with probability p.
func randomDates(today time.Time, n int, p float64) []string {
	dates := []string{}
	for d := n; d >= 0; d-- {
		if rand.Float64() < p {
			dates = append(dates, domain.FormatDate(today.AddDate(0, 0, -d)))
		}
	}
	return dates
}
