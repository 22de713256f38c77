// Package credentials scores password strength and validates the login and
// registration forms before anything is sent to the backend.
package credentials

import "unicode/utf8"

// MinLength is the length that earns the length point.
const MinLength = 8

// MinAcceptableScore is the lowest score accepted at registration.
const MinAcceptableScore = 3

// Label is the human-readable strength band.
type Label string

const (
	VeryWeak Label = "Very Weak"
	Weak     Label = "Weak"
	Fair     Label = "Fair"
	Good     Label = "Good"
	Strong   Label = "Strong"
)

// labels maps a score to its band. 0 and 1 share a band.
var labels = [...]Label{VeryWeak, VeryWeak, Weak, Fair, Good, Strong}

// Criterion is one of the five independent strength checks.
type Criterion string

const (
	CriterionLength    Criterion = "length"
	CriterionUppercase Criterion = "uppercase"
	CriterionLowercase Criterion = "lowercase"
	CriterionDigit     Criterion = "digit"
	CriterionSymbol    Criterion = "symbol"
)

// Assessment is derived from a password on every change; it is never cached.
type Assessment struct {
	Score   int
	Label   Label
	Missing []Criterion
}

// Acceptable reports whether the score clears MinAcceptableScore.
func (a Assessment) Acceptable() bool {
	return a.Score >= MinAcceptableScore
}

// Score counts the satisfied criteria: at least MinLength characters, an
// ASCII uppercase letter, an ASCII lowercase letter, an ASCII digit and a
// character outside [A-Za-z0-9]. Each is worth exactly one point.
func Score(password string) Assessment {
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}

	checks := []struct {
		ok bool
		c  Criterion
	}{
		{utf8.RuneCountInString(password) >= MinLength, CriterionLength},
		{upper, CriterionUppercase},
		{lower, CriterionLowercase},
		{digit, CriterionDigit},
		{symbol, CriterionSymbol},
	}

	var a Assessment
	for _, check := range checks {
		if check.ok {
			a.Score++
		} else {
			a.Missing = append(a.Missing, check.c)
		}
	}
	a.Label = labels[a.Score]
	return a
}

// Matches reports whether the confirmation equals the password.
func Matches(password, confirmation string) bool {
	return password == confirmation
}
