package idx

import (
	"github.com/LinaBursami/aptos-core/common/bigendian"
)

type (
	// Epoch numeration.
	Epoch uint64

	// Round numeration.
	Round uint64

	// ValidatorID numeration.
	ValidatorID uint32
)

// Bytes gets the byte representation of the index.
func (e Epoch) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(e))
}

// Bytes gets the byte representation of the index.
func (r Round) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(r))
}

// Bytes gets the byte representation of the index.
func (v ValidatorID) Bytes() []byte {
	return bigendian.Uint32ToBytes(uint32(v))
}

// BytesToEpoch converts bytes to epoch index.
func BytesToEpoch(b []byte) Epoch {
	return Epoch(bigendian.BytesToUint64(b))
}

// BytesToRound converts bytes to round index.
func BytesToRound(b []byte) Round {
	return Round(bigendian.BytesToUint64(b))
}

// BytesToValidatorID converts bytes to validator ID.
func BytesToValidatorID(b []byte) ValidatorID {
	return ValidatorID(bigendian.BytesToUint32(b))
}
