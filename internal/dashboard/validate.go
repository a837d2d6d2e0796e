package dashboard

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const minGraduationYear = 1950

var usnPattern = regexp.MustCompile(`^[a-zA-Z0-9]{6,20}$`)

// Form is the request form as typed by the student.
type Form struct {
	USN              string `validate:"usn"`
	YearOfGraduation string `validate:"graduationyear"`
	CertificateType  string `validate:"required"`
}

// ErrInvalidForm matches every *FormError.
var ErrInvalidForm = errors.New("invalid form")

// FormError carries the notice shown for a failed local check.
type FormError struct {
	Message string
}

func (e *FormError) Error() string { return e.Message }

func (e *FormError) Unwrap() error { return ErrInvalidForm }

type formValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

func newFormValidator(now func() time.Time) *formValidator {
	fv := &formValidator{validate: validator.New(), now: now}
	_ = fv.validate.RegisterValidation("usn", func(fl validator.FieldLevel) bool {
		return usnPattern.MatchString(fl.Field().String())
	})
	_ = fv.validate.RegisterValidation("graduationyear", func(fl validator.FieldLevel) bool {
		year, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
		return err == nil && year >= minGraduationYear && year <= fv.maxYear()
	})
	return fv
}

func (fv *formValidator) maxYear() int {
	return fv.now().Year() + 10
}

// Check returns the notice text for the first invalid field, in form order.
func (fv *formValidator) Check(f Form) error {
	err := fv.validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &FormError{Message: err.Error()}
	}
	switch verrs[0].StructField() {
	case "USN":
		return &FormError{Message: "Please enter a valid USN (6-20 alphanumeric characters)."}
	case "YearOfGraduation":
		return &FormError{Message: fmt.Sprintf("Please enter a valid graduation year (%d to %d).", minGraduationYear, fv.maxYear())}
	default:
		return &FormError{Message: "Please select a certificate type."}
	}
}

// year parses a form value that already passed Check.
func (f Form) year() int {
	y, _ := strconv.Atoi(strings.TrimSpace(f.YearOfGraduation))
	return y
}
