// Package money implements the tip and rounding arithmetic for payments.
// Everything works on int64 minor currency units; results must be bit-exact,
// so no floating point is involved anywhere.
package money

// RoundHalfUp returns num/den rounded half-up. Both arguments must be
// non-negative and den must be positive.
func RoundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}

// RoundToHundred rounds v to the nearest multiple of 100, ties up.
func RoundToHundred(v int64) int64 {
	return RoundHalfUp(v, 100) * 100
}
