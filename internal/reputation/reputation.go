package reputation

import (
	"fmt"
	"math/big"

	"reciclaai/internal/httperr"
)

// Оценки и средние считаются точной десятичной арифметикой на big.Rat,
// итог округляется до 2 знаков по правилу half-up. Истории оценок нет:
// хранится только пара (среднее, количество).

// ParseScore разбирает оценку из запроса и проверяет диапазон [0, 5]
func ParseScore(raw string) (*big.Rat, error) {
	if raw == "" {
		return nil, httperr.Validation("score is required")
	}
	s, ok := new(big.Rat).SetString(raw)
	if !ok {
		return nil, httperr.Validation("malformed score: " + raw)
	}
	if s.Sign() < 0 || s.Cmp(big.NewRat(5, 1)) > 0 {
		return nil, httperr.Validation("score must be between 0 and 5")
	}
	return s, nil
}

// NextAverage применяет рекуррентную формулу (m*n + s) / (n+1)
// к текущему среднему m (десятичная строка) и счётчику n.
// Возвращает новое среднее с двумя знаками после запятой.
func NextAverage(average string, count int, score *big.Rat) (string, error) {
	if count < 0 {
		return "", fmt.Errorf("negative rating count: %d", count)
	}
	m, ok := new(big.Rat).SetString(average)
	if !ok {
		return "", fmt.Errorf("malformed stored average: %q", average)
	}

	sum := new(big.Rat).Mul(m, new(big.Rat).SetInt64(int64(count)))
	sum.Add(sum, score)
	next := sum.Quo(sum, new(big.Rat).SetInt64(int64(count)+1))

	return formatHalfUp(next), nil
}

// formatHalfUp округляет неотрицательное значение до сотых (half-up)
func formatHalfUp(x *big.Rat) string {
	scaled := new(big.Rat).Mul(x, big.NewRat(100, 1))
	scaled.Add(scaled, big.NewRat(1, 2))
	cents := new(big.Int).Quo(scaled.Num(), scaled.Denom())

	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(cents, big.NewInt(100), frac)
	return fmt.Sprintf("%d.%02d", whole, frac)
}
