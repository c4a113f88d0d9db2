package pkg

import (
	cryptoRand "crypto/rand"
	"math/big"
	"strings"
)

// ResetCodeLength is the number of digits in an emailed password-reset code.
const ResetCodeLength = 6

// NewResetCode draws a reset code from crypto/rand one digit at a time, so
// the distribution stays uniform.
func NewResetCode() (string, error) {
	var b strings.Builder
	b.Grow(ResetCodeLength)
	for i := 0; i < ResetCodeLength; i++ {
		x, err := cryptoRand.Int(cryptoRand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + x.Int64()))
	}
	return b.String(), nil
}
