package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed    = errors.New("password hashing failed")
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrPasswordMismatch = errors.New("password mismatch")
	MinPasswordLen      = 8
	// bcrypt only reads the first 72 bytes
	MaxPasswordLen      = 72
)

// PasswordHasher provides interface for password operations
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
	// CompareDummy burns the same bcrypt cost as Compare against a hash no
	// password matches. Used when the account does not exist.
	CompareDummy(password string)
}

type bcryptHasher struct {
	cost  int
	dummy []byte
}

// NewBcryptHasher creates a new password hasher using bcrypt
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("no-account-matches-this"), cost)
	if err != nil {
		panic(err)
	}
	return &bcryptHasher{cost: cost, dummy: dummy}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLen {
		return "", ErrPasswordTooLong
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

func (b *bcryptHasher) CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(password))
}
