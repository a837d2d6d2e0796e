package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormCheck(t *testing.T) {
	fv := newFormValidator(fixedNow)

	tests := []struct {
		name string
		form Form
		want string
	}{
		{"valid", Form{USN: "ORGUSN1", YearOfGraduation: "2025", CertificateType: "Degree"}, ""},
		{"usn too short", Form{USN: "ab12", YearOfGraduation: "2025", CertificateType: "Degree"}, "Please enter a valid USN (6-20 alphanumeric characters)."},
		{"usn with symbols", Form{USN: "ORG-USN-1", YearOfGraduation: "2025", CertificateType: "Degree"}, "Please enter a valid USN (6-20 alphanumeric characters)."},
		{"usn too long", Form{USN: "A123456789012345678901", YearOfGraduation: "2025", CertificateType: "Degree"}, "Please enter a valid USN (6-20 alphanumeric characters)."},
		{"year below range", Form{USN: "ORGUSN1", YearOfGraduation: "1949", CertificateType: "Degree"}, "Please enter a valid graduation year (1950 to 2035)."},
		{"year above range", Form{USN: "ORGUSN1", YearOfGraduation: "2036", CertificateType: "Degree"}, "Please enter a valid graduation year (1950 to 2035)."},
		{"year not a number", Form{USN: "ORGUSN1", YearOfGraduation: "twenty", CertificateType: "Degree"}, "Please enter a valid graduation year (1950 to 2035)."},
		{"upper bound inclusive", Form{USN: "ORGUSN1", YearOfGraduation: "2035", CertificateType: "Degree"}, ""},
		{"missing type", Form{USN: "ORGUSN1", YearOfGraduation: "2025"}, "Please select a certificate type."},
		{"first field wins", Form{}, "Please enter a valid USN (6-20 alphanumeric characters)."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fv.Check(tt.form)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidForm)
			assert.EqualError(t, err, tt.want)
		})
	}
}
