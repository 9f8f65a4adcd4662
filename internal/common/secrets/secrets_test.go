package secrets

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecret("123456")
	require.NoError(t, err)
	require.NotEqual(t, "123456", hash)

	require.True(t, VerifySecret("123456", hash))
	require.False(t, VerifySecret("654321", hash))
	require.False(t, VerifySecret("123456", "not-a-hash"))
}

func TestGenerateOTP(t *testing.T) {
	code, err := GenerateOTP("")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	fixed, err := GenerateOTP("111111")
	require.NoError(t, err)
	require.Equal(t, "111111", fixed)
}

func TestGenerateSessionID(t *testing.T) {
	a, err := GenerateSessionID()
	require.NoError(t, err)
	require.Len(t, a, 32)

	b, err := GenerateSessionID()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestGenerateUniqueID(t *testing.T) {
	id, err := GenerateUniqueID()
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^KK-[0-9A-Z]{6}$`), id)
}

func TestGeneratePasswordClasses(t *testing.T) {
	for i := 0; i < 50; i++ {
		pw, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, pw, 12)
		require.True(t, strings.ContainsAny(pw, lowerChars), pw)
		require.True(t, strings.ContainsAny(pw, upperChars), pw)
		require.True(t, strings.ContainsAny(pw, digitChars), pw)
		require.True(t, strings.ContainsAny(pw, specialChars), pw)
	}
}

func TestGenerateUsername(t *testing.T) {
	username, err := GenerateUsername("Jane", "O'Doe 2")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^jane\.odoe\d{1,3}$`), username)
}
