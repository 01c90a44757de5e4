// Package emoji, reaction değerlerinin doğrulamasını yapar.
//
// Bir reaction tam olarak tek bir emoji olmalıdır: "👍" geçerli,
// "👍👍", "ok" veya "👍 ok" geçersizdir.
package emoji

import (
	"errors"
	"strings"

	"github.com/forPelevin/gomoji"
)

// ErrInvalidReaction, reaction tek bir emoji değilse döner.
var ErrInvalidReaction = errors.New("reaction must be a single emoji")

// Validate, reaction'ın tek bir emoji olduğunu kontrol eder.
func Validate(reaction string) error {
	reaction = strings.TrimSpace(reaction)
	if reaction == "" {
		return ErrInvalidReaction
	}

	// Emojiler çıkarıldıktan sonra karakter kalıyorsa metin karışmış demektir.
	if strings.TrimSpace(gomoji.RemoveEmojis(reaction)) != "" {
		return ErrInvalidReaction
	}

	if len(gomoji.CollectAll(reaction)) != 1 {
		return ErrInvalidReaction
	}

	return nil
}
