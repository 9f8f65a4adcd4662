// Package secrets holds the credential primitives: adaptive hashing for
// passwords and OTP codes, and CSPRNG-backed generators for codes, ids
// and passwords.
package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// uniqueIDAlphabet is the restricted 36-symbol alphabet for participant ids.
const uniqueIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// HashSecret hashes a password or OTP code. A hashing failure is a
// configuration error and should be treated as fatal by the caller.
func HashSecret(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret reports whether plaintext matches hash.
func VerifySecret(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

func randomInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(n.Int64()), nil
}

func randomFrom(alphabet string, length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		idx, err := randomInt(len(alphabet))
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx])
	}
	return b.String(), nil
}

// GenerateOTP returns a 6-digit one-time code. When testCode is
// non-empty it is returned as-is; dev and test environments rely on
// this for deterministic verification flows.
func GenerateOTP(testCode string) (string, error) {
	if testCode != "" {
		return testCode, nil
	}
	n, err := randomInt(900000)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", 100000+n), nil
}

// GenerateSessionID returns an opaque 32-character hex id.
func GenerateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateUniqueID returns a candidate participant id of the form
// KK-XXXXXX. Callers must collision-check against existing
// participants and retry.
func GenerateUniqueID() (string, error) {
	suffix, err := randomFrom(uniqueIDAlphabet, 6)
	if err != nil {
		return "", err
	}
	return "KK-" + suffix, nil
}

const (
	passwordLength  = 12
	lowerChars      = "abcdefghijklmnopqrstuvwxyz"
	upperChars      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars      = "0123456789"
	specialChars    = "!@#$%"
	allPasswordSets = lowerChars + upperChars + digitChars + specialChars
)

// GeneratePassword returns a 12-character password containing at least
// one lowercase, uppercase, digit and special character, shuffled with
// a CSPRNG Fisher-Yates pass.
func GeneratePassword() (string, error) {
	chars := make([]byte, 0, passwordLength)

	for _, set := range []string{lowerChars, upperChars, digitChars, specialChars} {
		idx, err := randomInt(len(set))
		if err != nil {
			return "", err
		}
		chars = append(chars, set[idx])
	}

	for len(chars) < passwordLength {
		idx, err := randomInt(len(allPasswordSets))
		if err != nil {
			return "", err
		}
		chars = append(chars, allPasswordSets[idx])
	}

	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

// GenerateUsername derives a login from the staff member's name plus a
// random numeric suffix, e.g. "jane.doe427".
func GenerateUsername(firstName, lastName string) (string, error) {
	clean := func(s string) string {
		s = strings.ToLower(s)
		var b strings.Builder
		for _, r := range s {
			if r >= 'a' && r <= 'z' {
				b.WriteRune(r)
			}
		}
		return b.String()
	}

	n, err := randomInt(1000)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s%d", clean(firstName), clean(lastName), n), nil
}
