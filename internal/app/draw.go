package app

import (
	"math/rand"

	"science-quiz/internal/domain"
)

// Draw returns k questions picked from bank without repeats, in random order.
// It shuffles a copy (Fisher-Yates) and never touches the input slice.
// A nil rnd falls back to the package-level source.
func Draw(bank []domain.Question, k int, rnd *rand.Rand) []domain.Question {
	intn := rand.Intn
	if rnd != nil {
		intn = rnd.Intn
	}

	shuffled := make([]domain.Question, len(bank))
	copy(shuffled, bank)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	if k > len(shuffled) {
		k = len(shuffled)
	}
	if k < 0 {
		k = 0
	}
	return shuffled[:k:k]
}
