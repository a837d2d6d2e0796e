package dashboard

import (
	"strconv"
	"strings"
)

type Requests []Request

// Filter keeps requests where term appears in the organization name or wallet,
// usn, year, certificate type, status or remarks. Matching ignores case.
func (rs Requests) Filter(term string) Requests {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rs
	}
	out := Requests{}
	for _, r := range rs {
		if r.matches(term) {
			out = append(out, r)
		}
	}
	return out
}

func (r Request) matches(term string) bool {
	fields := []string{
		r.Organization.Name,
		r.Organization.WalletAddress,
		r.USN,
		r.CertificateType,
		r.Status,
		r.Remarks,
	}
	if r.YearOfGraduation != 0 {
		fields = append(fields, strconv.Itoa(r.YearOfGraduation))
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
