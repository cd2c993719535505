package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is deliberately above the library default to keep hashing
// expensive for brute-force attempts.
const bcryptCost = 12

// HashPassword returns the bcrypt hash of a plaintext password.
// The plaintext is never logged or stored.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPassword reports whether the plaintext matches the stored hash.
// Any failure — wrong password, malformed hash, backend error — yields
// false, so callers cannot tell the causes apart. bcrypt's comparison
// is constant-time.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
