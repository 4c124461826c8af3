package inventory

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const suffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const suffixLength = 4

// GenerateBatchNumber derives a display batch number from the product name
// and received date: three uppercased alphabetic characters, an 8-digit
// date and a short random suffix. Uniqueness is probabilistic; the batch
// id remains the primary key.
func GenerateBatchNumber(productName string, receivedDate time.Time) string {
	var prefix strings.Builder
	for _, r := range productName {
		if unicode.IsLetter(r) {
			prefix.WriteRune(unicode.ToUpper(r))
			if prefix.Len() >= 3 {
				break
			}
		}
	}
	for prefix.Len() < 3 {
		prefix.WriteByte('X')
	}

	return fmt.Sprintf("%s-%s-%s", prefix.String(), receivedDate.Format("20060102"), randomSuffix())
}

func randomSuffix() string {
	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to a
		// fixed suffix rather than panic over a display aid.
		return strings.Repeat("0", suffixLength)
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf)
}
