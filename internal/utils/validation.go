package utils

import (
	"encoding/hex"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("tag_uid", func(fl validator.FieldLevel) bool {
		return IsValidTagUID(fl.Field().String())
	})
	validate.RegisterValidation("account", func(fl validator.FieldLevel) bool {
		return IsValidAccount(fl.Field().String())
	})
}

// ValidateStruct validates a struct using validation tags
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// IsValidTagUID reports whether s is hex. The byte length is checked by the
// scan log so that a wrong length surfaces as its own error.
func IsValidTagUID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// IsValidAccount checks that an account name is usable as a path segment and
// an MQTT topic level
func IsValidAccount(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	return !strings.ContainsAny(s, "/+# \t\n")
}
