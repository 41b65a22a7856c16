package datasus

import (
	"math/rand"
	"time"

	"github.com/ilkoid/srag-ai/pkg/srag"
)

// GenerateDemo строит детерминированный датасет одного года.
//
// Demo режим нужен для разработки и e2e тестов без обращения к порталу:
// seed фиксирован годом, поэтому повторные генерации идентичны.
func GenerateDemo(year int) []srag.Record {
	rng := rand.New(rand.NewSource(int64(year)))

	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	days := 365
	if start.AddDate(1, 0, 0).Sub(start).Hours() > 365*24 {
		days = 366
	}

	// Волна заболеваемости: пик в середине года
	const base = 8

	var records []srag.Record
	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day)
		wave := 1.0 + 0.8*waveFactor(day, days)
		count := int(float64(base)*wave) + rng.Intn(3)

		for i := 0; i < count; i++ {
			records = append(records, srag.Record{
				Year:         year,
				State:        srag.States[rng.Intn(len(srag.States))],
				Notified:     date,
				Week:         date.YearDay()/7 + 1,
				Evolution:    demoEvolution(rng),
				ICU:          demoFlag(rng, 0.15),
				Vaccinated:   demoFlag(rng, 0.6),
				Hospitalized: demoFlag(rng, 0.7),
			})
		}
	}
	return records
}

// waveFactor — треугольная волна с пиком в середине года.
func waveFactor(day, days int) float64 {
	mid := float64(days) / 2
	d := float64(day)
	if d <= mid {
		return d / mid
	}
	return (float64(days) - d) / mid
}

func demoEvolution(rng *rand.Rand) int {
	switch r := rng.Float64(); {
	case r < 0.12:
		return srag.EvolutionDeath
	case r < 0.15:
		return srag.EvolutionDeathOther
	case r < 0.92:
		return srag.EvolutionCure
	default:
		return srag.EvolutionUnknown
	}
}

func demoFlag(rng *rand.Rand, yesProb float64) int {
	switch r := rng.Float64(); {
	case r < yesProb:
		return srag.FlagYes
	case r < 0.95:
		return srag.FlagNo
	default:
		return srag.FlagUnknown
	}
}
