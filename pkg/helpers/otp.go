package helpers

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// GenOTPCode draws a uniform 6-digit code in [100000, 999999] from a
// cryptographically secure source.
func GenOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(100000+n.Int64(), 10), nil
}
