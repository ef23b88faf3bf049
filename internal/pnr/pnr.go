// Package pnr generates passenger name record codes: two uppercase letters
// followed by four digits, e.g. AB1234. Codes are not unique by themselves;
// the booking ledger pairs generation with a storage uniqueness check.
package pnr

import (
	"regexp"

	"github.com/Domenick1991/fareledger/internal/entropy"
)

const (
	letters    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits     = "0123456789"
	letterPart = 2
	digitPart  = 4
	Length     = letterPart + digitPart
)

var pattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{4}$`)

// Generator produces codes from the provided random source.
type Generator struct {
	src entropy.Source
}

func NewGenerator(src entropy.Source) *Generator {
	return &Generator{src: src}
}

func (g *Generator) Generate() string {
	b := make([]byte, 0, Length)
	for i := 0; i < letterPart; i++ {
		b = append(b, letters[g.src.IntN(len(letters))])
	}
	for i := 0; i < digitPart; i++ {
		b = append(b, digits[g.src.IntN(len(digits))])
	}
	return string(b)
}

// Valid reports whether s has the PNR shape.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
