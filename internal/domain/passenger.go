package domain

import (
	"fmt"
	"strings"
	"unicode"
)

type Passenger struct {
	Name            string `json:"name"`
	Age             int    `json:"age"`
	Phone           string `json:"phone"`
	Email           string `json:"email,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// Normalize trims and validates the passenger and returns a cleaned copy
// with the name in title case.
func (p Passenger) Normalize() (Passenger, error) {
	name := strings.Join(strings.Fields(p.Name), " ")
	phone := strings.TrimSpace(p.Phone)

	switch {
	case name == "":
		return Passenger{}, NewInvalidInput("name is required")
	case p.Age == 0:
		return Passenger{}, NewInvalidInput("age is required")
	case phone == "":
		return Passenger{}, NewInvalidInput("phone is required")
	}
	if p.Age < 1 || p.Age > 120 {
		return Passenger{}, NewInvalidInput("age must be between 1 and 120")
	}
	if len(phone) < 10 {
		return Passenger{}, NewInvalidInput("phone number must be at least 10 digits")
	}
	if len([]rune(name)) < 2 {
		return Passenger{}, NewInvalidInput("name must be at least 2 characters")
	}

	return Passenger{
		Name:            titleCase(name),
		Age:             p.Age,
		Phone:           phone,
		Email:           strings.TrimSpace(p.Email),
		SpecialRequests: strings.TrimSpace(p.SpecialRequests),
	}, nil
}

func (p Passenger) String() string {
	return fmt.Sprintf("%s (%d)", p.Name, p.Age)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
