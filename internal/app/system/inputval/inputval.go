// internal/app/system/inputval/inputval.go
//
// Package inputval validates decoded request payloads with struct tags.
//
//	type createGroupInput struct {
//		Name  string `json:"name" validate:"required,max=80" label:"Group name"`
//		Level string `json:"level" validate:"required,grouplevel" label:"Level"`
//	}
//
//	if res := inputval.Validate(in); res.HasErrors() { ... }
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule, with a message ready for display.
type FieldError struct {
	Field   string `json:"field"`
	Label   string `json:"-"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result collects every failed rule in field order.
type Result struct {
	Errors []FieldError `json:"errors"`
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return r != nil && len(r.Errors) > 0 }

// First returns the first message, or "" when valid.
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Fields maps each failing field (by its json name) to its first message.
func (r *Result) Fields() map[string]string {
	out := map[string]string{}
	if r == nil {
		return out
	}
	for _, e := range r.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Error lets a Result travel as an error.
func (r *Result) Error() string { return r.All() }

var (
	once sync.Once
	v    *validator.Validate
	pin  = regexp.MustCompile(`^[0-9]{3}$`)
)

func engine() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		mustRegister("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		mustRegister("pin", func(fl validator.FieldLevel) bool {
			return IsValidPIN(fl.Field().String())
		})
		mustRegister("hhmm", func(fl validator.FieldLevel) bool {
			return IsValidClock(fl.Field().String())
		})
		mustRegister("grouplevel", func(fl validator.FieldLevel) bool {
			return normalize.GroupLevel(fl.Field().String()).IsValid()
		})
		mustRegister("role", func(fl validator.FieldLevel) bool {
			return models.Role(strings.TrimSpace(fl.Field().String())).IsValid()
		})
		mustRegister("eventtype", func(fl validator.FieldLevel) bool {
			return normalize.EventType(fl.Field().String()) != ""
		})
		mustRegister("language", func(fl validator.FieldLevel) bool {
			return models.IsSupportedLanguage(fl.Field().String())
		})
	})
	return v
}

func mustRegister(tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("inputval: register %s: %v", tag, err))
	}
}

// Validate runs the struct's validate tags. input must be a struct or a
// pointer to one.
func Validate(input any) *Result {
	res := &Result{}
	err := engine().Struct(input)
	if err == nil {
		return res
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Rule: "invalid", Message: "Invalid input."})
		return res
	}

	t := reflect.TypeOf(input)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, fe := range verrs {
		label := labelFor(t, fe)
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.Field(),
			Label:   label,
			Rule:    fe.Tag(),
			Message: message(label, fe),
		})
	}
	return res
}

// labelFor reads the label tag of the failing field. Nested fields fall
// back to the json name.
func labelFor(t reflect.Type, fe validator.FieldError) string {
	if t.Kind() == reflect.Struct {
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if l := sf.Tag.Get("label"); l != "" {
				return l
			}
		}
	}
	return fe.Field()
}

func message(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "email":
		return "A valid email address is required."
	case "objectid":
		return label + " is not a valid id."
	case "pin":
		return label + " must be exactly 3 digits."
	case "hhmm":
		return label + " must be a time like 07:30."
	case "grouplevel":
		return label + " must be beginner, intermediate or advanced."
	case "role":
		return label + " is not a known role."
	case "eventtype":
		return label + " must be daily or weekly."
	case "language":
		return label + " is not a supported language."
	case "eqfield":
		return label + " does not match."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return label + " is invalid."
}

/*─────────────────────────────────────────────────────────────────────────────*
| Single-value checks                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// IsValidEmail reports whether s is a bare address (no display name).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && engine().Var(s, "email") == nil
}

// IsValidObjectID reports whether s is a 24-char hex id.
func IsValidObjectID(s string) bool {
	return primitive.IsValidObjectID(strings.TrimSpace(s))
}

// IsValidPIN reports whether s is the 3-digit PIN used for name sign-in.
func IsValidPIN(s string) bool {
	return pin.MatchString(strings.TrimSpace(s))
}

// IsValidClock reports whether s is a 24h HH:MM time.
func IsValidClock(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// ParseObjectID parses a hex id from a path or query value.
func ParseObjectID(s string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return oid, err == nil
}
