package service

import (
	"fmt"
	"unicode"

	"github.com/kedai-next/internal/config"
)

type passwordPolicyError struct {
	message string
}

func (e passwordPolicyError) Error() string {
	return e.message
}

func (e passwordPolicyError) Is(target error) bool {
	return target == ErrPasswordTooWeak
}

func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength <= 0 &&
		!policy.RequireUpper &&
		!policy.RequireLower &&
		!policy.RequireNumber &&
		!policy.RequireSpecial {
		return nil
	}

	if policy.MinLength > 0 {
		if len([]rune(password)) < policy.MinLength {
			return passwordPolicyError{message: fmt.Sprintf("password must be at least %d characters", policy.MinLength)}
		}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	if policy.RequireUpper && !hasUpper {
		return passwordPolicyError{message: "password must contain an uppercase letter"}
	}
	if policy.RequireLower && !hasLower {
		return passwordPolicyError{message: "password must contain a lowercase letter"}
	}
	if policy.RequireNumber && !hasNumber {
		return passwordPolicyError{message: "password must contain a number"}
	}
	if policy.RequireSpecial && !hasSpecial {
		return passwordPolicyError{message: "password must contain a special character"}
	}

	return nil
}
