package pos

import (
	"github.com/LinaBursami/aptos-core/inter/idx"
)

type (
	// WeightCounterProvider provides weight counter.
	WeightCounterProvider func() *WeightCounter

	// WeightCounter counts weights.
	WeightCounter struct {
		validators *Validators
		already    []bool // idx.Validator -> bool

		quorum Weight
		sum    Weight
	}
)

// NewCounter constructor.
func (vv *Validators) NewCounter() *WeightCounter {
	return newWeightCounter(vv)
}

func newWeightCounter(vv *Validators) *WeightCounter {
	return &WeightCounter{
		validators: vv,
		quorum:     vv.Quorum(),
		already:    make([]bool, vv.Len()),
		sum:        0,
	}
}

// Count validator and return true if it hadn't counted before.
func (s *WeightCounter) Count(v idx.ValidatorID) bool {
	validatorIdx := s.validators.GetIdx(v)
	return s.CountByIdx(validatorIdx)
}

// CountByIdx validator and return true if it hadn't counted before.
func (s *WeightCounter) CountByIdx(validatorIdx idx.Validator) bool {
	if s.already[validatorIdx] {
		return false
	}
	s.already[validatorIdx] = true

	s.sum += s.validators.GetWeightByIdx(validatorIdx)
	return true
}

// HasQuorum achieved.
func (s *WeightCounter) HasQuorum() bool {
	return s.sum >= s.quorum
}

// Sum of counted weights.
func (s *WeightCounter) Sum() Weight {
	return s.sum
}

// NumCounted of validators
func (s *WeightCounter) NumCounted() int {
	num := 0
	for _, counted := range s.already {
		if counted {
			num++
		}
	}
	return num
}

// CheckVotingPower reports whether the given validators together carry
// a quorum of voting power. Unknown IDs don't contribute.
func (vv *Validators) CheckVotingPower(ids []idx.ValidatorID) bool {
	counter := vv.NewCounter()
	for _, id := range ids {
		if !vv.Exists(id) {
			continue
		}
		counter.Count(id)
	}
	return counter.HasQuorum()
}
