// Package checkout validates the checkout form and turns a valid submission
// into a CartCheckedOut event.
package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Form struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Street    string `json:"street" validate:"required"`
	City      string `json:"city" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
	Country   string `json:"country" validate:"required"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=32"`

	// Billing fields are only read when BillingSame is false.
	BillingSame    bool   `json:"billingSame"`
	BillingCompany string `json:"billingCompany,omitempty" validate:"max=200"`
	BillingName    string `json:"billingName,omitempty" validate:"required_if=BillingSame false"`
	BillingStreet  string `json:"billingStreet,omitempty" validate:"required_if=BillingSame false"`
	BillingCity    string `json:"billingCity,omitempty" validate:"required_if=BillingSame false"`
	BillingZip     string `json:"billingZip,omitempty" validate:"required_if=BillingSame false"`

	Note          string `json:"note,omitempty" validate:"max=1000"`
	TermsAccepted bool   `json:"termsAccepted" validate:"eq=true"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists field errors in form order; the first one is where
// the cursor should go.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "invalid checkout form: " + strings.Join(names, ", ")
}

type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate trims every text field and checks the result. It returns nil or
// a *ValidationError.
func (v *Validator) Validate(f *Form) error {
	f.normalize()

	err := v.v.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "eq":
		return "You must accept the terms and conditions"
	case "max":
		return "Too long"
	default:
		return "Invalid value"
	}
}

func (f *Form) normalize() {
	for _, p := range []*string{
		&f.Email, &f.FirstName, &f.LastName, &f.Street, &f.City, &f.Zip, &f.Country, &f.Phone,
		&f.BillingCompany, &f.BillingName, &f.BillingStreet, &f.BillingCity, &f.BillingZip, &f.Note,
	} {
		*p = strings.TrimSpace(*p)
	}
}
