package rooms

import (
	"math/rand"
	"strings"

	"github.com/spinroom/spinroom/go/internal/models"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NormalizeCode upper-cases a room code and validates its format: exactly
// six alphanumeric characters.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != models.RoomCodeLength {
		return "", ErrInvalidRoomCode
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return "", ErrInvalidRoomCode
		}
	}
	return code, nil
}

// GenerateCode returns a fresh six-character room code.
func GenerateCode() string {
	var b strings.Builder
	for i := 0; i < models.RoomCodeLength; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}
