package ruoyidb

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
)

// HashPassword returns the bcrypt hash the target stores for plain.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.WrapValidation("password", err)
	}
	return string(hash), nil
}

// ResolvePassword returns the hash assigned to created users: the configured
// hash when set, otherwise a hash of plain or of the default password.
func ResolvePassword(hash, plain string) (string, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return "", errors.NewValidationError("DEFAULT_USER_PASSWORD_HASH", "<redacted>", "not a bcrypt hash")
		}
		return hash, nil
	}
	if plain == "" {
		plain = constants.DefaultUserPassword
	}
	return HashPassword(plain)
}
