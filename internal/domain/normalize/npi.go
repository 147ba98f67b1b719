package normalize

// NPI reduces a provider identifier to digits and checks its mod-10 digit.
// The check digit is computed over the identifier prefixed with 80840 (the
// 15-digit card-issuer padding), which contributes a constant 24 to the sum.
// Mismatches are reported, never corrected.
func NPI(raw string) (string, bool) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	d := string(digits)
	if len(d) != 10 {
		return d, false
	}
	return d, npiCheckDigit(d[:9]) == int(d[9]-'0')
}

// npiCheckDigit computes the Luhn check digit for a 9-digit base.
func npiCheckDigit(base string) int {
	sum := 24 // fixed 80840 prefix contribution
	double := true
	for i := len(base) - 1; i >= 0; i-- {
		n := int(base[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return (10 - sum%10) % 10
}
