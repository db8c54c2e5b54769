// Package validation checks inbound plan requests and configured location names.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ErrLocationEmpty is returned when location is empty or whitespace-only after trim.
var ErrLocationEmpty = errors.New("location is required")

// ErrLocationTooShort is returned when location length is below the minimum.
var ErrLocationTooShort = errors.New("location too short")

// ErrLocationTooLong is returned when location length exceeds the maximum.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when location contains disallowed characters.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

// ErrEmptyMessage is returned when the plan message is blank after trimming.
var ErrEmptyMessage = errors.New("message is empty")

// ErrInvalidRequest wraps every other request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// MaxMessageLen mirrors the max tag on PlanRequest.Message.
const MaxMessageLen = 500

// PlanRequest is the body of POST /api/plan.
type PlanRequest struct {
	Message string   `json:"message" validate:"required,min=2,max=500"`
	Intents []string `json:"intents,omitempty" validate:"omitempty,max=8,dive,required,max=32"`
}

var validate = validator.New()

// ValidatePlanRequest trims the message in place and checks the request. Unknown intent
// names pass; they are filtered when domains are resolved.
func ValidatePlanRequest(req *PlanRequest) error {
	raw := req.Message
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		if raw == "" {
			return fmt.Errorf("%w: message is required", ErrInvalidRequest)
		}
		return ErrEmptyMessage
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(verrs[0]))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// ValidateLocation trims the input, enforces length bounds (minLen, maxLen in runes),
// and restricts to letters, digits, space, comma, hyphen, apostrophe and period.
func ValidateLocation(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrLocationEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrLocationTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrLocationTooLong
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

// SanitizeLocation drops disallowed characters from an extracted place candidate,
// collapses whitespace and truncates to maxLen runes.
func SanitizeLocation(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if isAllowedLocationRune(r) {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return -1
	}, input)
	s := strings.Join(strings.Fields(cleaned), " ")
	if r := []rune(s); maxLen > 0 && len(r) > maxLen {
		s = strings.TrimSpace(string(r[:maxLen]))
	}
	return s
}

func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '\'', '.':
		return true
	}
	return false
}
