// internal/domain/models/authmethods.go
package models

// Sign-in methods recorded in login history and audit events.
const (
	LoginPassword = "password"
	LoginPIN      = "pin"
	LoginGoogle   = "google"
)

// LoginMethod pairs a stored value with its display label.
type LoginMethod struct {
	Value string
	Label string
}

// AllLoginMethods lists the supported sign-in methods.
var AllLoginMethods = []LoginMethod{
	{Value: LoginPassword, Label: "Email and password"},
	{Value: LoginPIN, Label: "Name and PIN"},
	{Value: LoginGoogle, Label: "Google"},
}

// IsValidLoginMethod checks if a value is a supported sign-in method.
func IsValidLoginMethod(value string) bool {
	for _, m := range AllLoginMethods {
		if m.Value == value {
			return true
		}
	}
	return false
}
