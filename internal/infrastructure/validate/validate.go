package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator checks a single string value and reports the first problem.
type Validator func(value string) error

// Field prefixes validation errors with the field's name so callers can
// surface them to end users directly.
func Field(name string, validators ...Validator) Validator {
	return func(value string) error {
		for _, v := range validators {
			if err := v(value); err != nil {
				if strings.Contains(err.Error(), name) {
					return err
				}
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		return nil
	}
}

// Compose runs validators in order and stops at the first failure.
func Compose(validators ...Validator) Validator {
	return func(value string) error {
		for _, v := range validators {
			if err := v(value); err != nil {
				return err
			}
		}
		return nil
	}
}

func Required() Validator {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("this field is required")
		}
		return nil
	}
}

func MinLength(min int) Validator {
	return func(v string) error {
		if len(v) < min {
			return fmt.Errorf("must be at least %d characters", min)
		}
		return nil
	}
}

func MaxLength(max int) Validator {
	return func(v string) error {
		if len(v) > max {
			return fmt.Errorf("must be no more than %d characters", max)
		}
		return nil
	}
}

// LengthBetween bounds the length inclusively on both ends.
func LengthBetween(min, max int) Validator {
	return Compose(MinLength(min), MaxLength(max))
}

// Matches validates against a pattern, reporting message on failure.
func Matches(pattern, message string) Validator {
	re := regexp.MustCompile(pattern)
	return func(v string) error {
		if re.MatchString(v) {
			return nil
		}
		if message == "" {
			message = "invalid format"
		}
		return fmt.Errorf("%s", message)
	}
}

func NoSpaces() Validator {
	return Matches(`^\S+$`, "must not contain spaces")
}

func Alphanumeric() Validator {
	return Matches(`^[a-zA-Z0-9]+$`, "must contain only letters and numbers")
}
