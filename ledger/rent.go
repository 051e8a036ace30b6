package ledger

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// AccountStorageOverhead is the per-account byte overhead charged on top of data length.
const AccountStorageOverhead = 128

// rentSysvarLen is the serialized size of the rent sysvar: u64, f64, u8.
const rentSysvarLen = 17

// Rent is the rent schedule. An account is rent exempt when it holds at least
// ExemptionThreshold years of rent for its size.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  decimal.Decimal
	BurnPercent         uint8
}

// DefaultRent returns the mainnet-compatible schedule.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: 3480,
		ExemptionThreshold:  decimal.NewFromInt(2),
		BurnPercent:         50,
	}
}

// MinimumBalance returns the lamports needed for an account of dataLen bytes
// to be rent exempt.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	size := decimal.NewFromInt(int64(dataLen) + AccountStorageOverhead)
	perYear := decimal.NewFromInt(int64(r.LamportsPerByteYear))
	return uint64(size.Mul(perYear).Mul(r.ExemptionThreshold).IntPart())
}

// IsExempt reports whether lamports cover the exemption minimum for dataLen.
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

// Encode returns the rent sysvar account data.
func (r Rent) Encode() []byte {
	out := make([]byte, rentSysvarLen)
	binary.LittleEndian.PutUint64(out[0:8], r.LamportsPerByteYear)
	threshold, _ := r.ExemptionThreshold.Float64()
	binary.LittleEndian.PutUint64(out[8:16], math.Float64bits(threshold))
	out[16] = r.BurnPercent
	return out
}

// DecodeRent parses rent sysvar account data.
func DecodeRent(b []byte) (Rent, error) {
	if len(b) != rentSysvarLen {
		return Rent{}, fmt.Errorf("ledger: rent sysvar must be %d bytes, got %d", rentSysvarLen, len(b))
	}
	return Rent{
		LamportsPerByteYear: binary.LittleEndian.Uint64(b[0:8]),
		ExemptionThreshold:  decimal.NewFromFloat(math.Float64frombits(binary.LittleEndian.Uint64(b[8:16]))),
		BurnPercent:         b[16],
	}, nil
}
