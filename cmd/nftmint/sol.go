package main

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const lamportsPerSOL = 9 // decimal places

// formatSOL renders lamports as SOL without rounding.
func formatSOL(lamports uint64) string {
	if lamports > math.MaxInt64 {
		return decimal.RequireFromString(fmt.Sprintf("%d", lamports)).Shift(-lamportsPerSOL).String()
	}
	return decimal.New(int64(lamports), -lamportsPerSOL).String()
}

// parseSOL converts a SOL amount to lamports. Amounts finer than one
// lamport are rejected rather than rounded.
func parseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid SOL amount %q", s)
	}
	l := d.Shift(lamportsPerSOL)
	if l.Sign() <= 0 {
		return 0, fmt.Errorf("SOL amount must be positive")
	}
	if !l.IsInteger() {
		return 0, fmt.Errorf("SOL amount %s is finer than one lamport", s)
	}
	b := l.BigInt()
	if !b.IsUint64() {
		return 0, fmt.Errorf("SOL amount %s overflows", s)
	}
	return b.Uint64(), nil
}
