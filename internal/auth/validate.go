package auth

import (
	"errors"
	"regexp"
	"strings"
)

// Roles
const (
	RoleMedic  = "medic"
	RoleDoctor = "doctor"
)

// Password length limits. bcrypt rejects input longer than 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)

// RegisterInput is a registration request
type RegisterInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Normalize trims fields and applies the default role
func (in *RegisterInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Role == "" {
		in.Role = RoleMedic
	}
}

// Validate checks a normalized registration request
func (in RegisterInput) Validate() error {
	if in.Name == "" {
		return errors.New("name is required")
	}
	if !ValidPhone(in.Phone) {
		return errors.New("invalid phone number format")
	}
	if len(in.Password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters long")
	}
	if len(in.Password) > MaxPasswordLength {
		return errors.New("password must be at most 72 bytes long")
	}
	if in.Role != RoleMedic && in.Role != RoleDoctor {
		return errors.New("role must be one of [medic, doctor]")
	}
	return nil
}

// LoginInput is a login request
type LoginInput struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Validate checks a login request after trimming the phone
func (in *LoginInput) Validate() error {
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Phone == "" {
		return errors.New("phone is required")
	}
	if in.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// ValidPhone reports whether phone is E.164-like: optional +, 8 to 15 digits
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
