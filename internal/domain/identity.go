package domain

import (
	"fmt"
	"strings"

	"github.com/hilthontt/codeclash/internal/infrastructure/validate"
)

// Identifiers are concatenated into channel names, so the separators used by
// composite channels are refused.
var validateIdentifier = validate.Compose(
	validate.Required(),
	validate.MaxLength(128),
	validate.NoSpaces(),
	validate.Excludes("-team-", "-problem-"),
)

var validateIdentity = validate.Compose(
	validate.Required(),
	validate.MaxLength(64),
)

// NormalizeIdentity trims the provider's username. Identities are otherwise
// opaque and compared byte for byte.
func NormalizeIdentity(raw string) (string, error) {
	if err := validateIdentity(raw); err != nil {
		return "", fmt.Errorf("%w: username: %v", ErrMalformedEvent, err)
	}
	return strings.TrimSpace(raw), nil
}

func ValidateRoomID(id string) error {
	if err := validateIdentifier(id); err != nil {
		return fmt.Errorf("%w: roomId: %v", ErrInvalidIdentifier, err)
	}
	return nil
}

func ValidateProblemID(id string) error {
	if err := validateIdentifier(id); err != nil {
		return fmt.Errorf("%w: problemId: %v", ErrInvalidIdentifier, err)
	}
	return nil
}
