package auth

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
)

// PasswordPolicy is an immutable strength rule set. Check is a pure function
// of the password.
type PasswordPolicy struct {
	minLength      int
	maxLength      int
	requireUpper   bool
	requireLower   bool
	requireDigit   bool
	requireSpecial bool
}

// NewPasswordPolicy copies the rules out of cfg.
func NewPasswordPolicy(cfg config.PasswordPolicy) PasswordPolicy {
	return PasswordPolicy{
		minLength:      cfg.MinLength,
		maxLength:      cfg.MaxLength,
		requireUpper:   cfg.RequireUpper,
		requireLower:   cfg.RequireLower,
		requireDigit:   cfg.RequireDigit,
		requireSpecial: cfg.RequireSpecial,
	}
}

// Check returns nil for an acceptable password, otherwise an error wrapping
// common.ErrWeakPassword that names the first violated rule.
func (p PasswordPolicy) Check(password string) error {
	n := utf8.RuneCountInString(password)
	if n < p.minLength {
		return fmt.Errorf("%w: password must be at least %d characters long", common.ErrWeakPassword, p.minLength)
	}
	if p.maxLength > 0 && n > p.maxLength {
		return fmt.Errorf("%w: password must be at most %d characters long", common.ErrWeakPassword, p.maxLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	switch {
	case p.requireUpper && !upper:
		return fmt.Errorf("%w: password must contain an uppercase letter", common.ErrWeakPassword)
	case p.requireLower && !lower:
		return fmt.Errorf("%w: password must contain a lowercase letter", common.ErrWeakPassword)
	case p.requireDigit && !digit:
		return fmt.Errorf("%w: password must contain a digit", common.ErrWeakPassword)
	case p.requireSpecial && !special:
		return fmt.Errorf("%w: password must contain a special character", common.ErrWeakPassword)
	}
	return nil
}
