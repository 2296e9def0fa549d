package models

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/email"
	pkgstrings "loanbroker/pkg/platform/strings"
)

const (
	MaxNameLength    = 120
	MaxCityLength    = 80
	MaxMessageLength = 2000
	MaxSourceLength  = 60
	MinPhoneDigits   = 10
	MaxPhoneDigits   = 15

	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Lead is an enquiry captured from a public form. Device fields are derived
// from the submitting request, never from the body.
type Lead struct {
	ID        id.LeadID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	LoanType  id.LoanType `json:"loan_type"`
	Amount    float64     `json:"amount"`
	City      string      `json:"city,omitempty"`
	Message   string      `json:"message,omitempty"`
	Source    string      `json:"source,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
	Browser   string      `json:"browser,omitempty"`
	OS        string      `json:"os,omitempty"`
	Mobile    bool        `json:"mobile"`
	ClientIP  string      `json:"client_ip,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type CaptureRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	LoanType string   `json:"loan_type"`
	Amount   float64  `json:"amount"`
	City     string   `json:"city"`
	Message  string   `json:"message"`
	Source   string   `json:"source"`
	Tags     []string `json:"tags"`
}

// Normalize trims free text, canonicalizes the email, strips phone
// punctuation and slugs tags.
func (r *CaptureRequest) Normalize() {
	r.Name = strings.Join(strings.Fields(r.Name), " ")
	r.Email = email.Normalize(r.Email)
	r.Phone = NormalizePhone(r.Phone)
	r.LoanType = strings.ToLower(strings.TrimSpace(r.LoanType))
	r.City = strings.TrimSpace(r.City)
	r.Message = strings.TrimSpace(r.Message)
	r.Source = strings.ToLower(strings.TrimSpace(r.Source))
	r.Tags = pkgstrings.NormalizeTags(r.Tags)
}

func (r *CaptureRequest) Validate() error {
	switch {
	case r.Name == "":
		return dErrors.New(dErrors.CodeValidation, "name is required")
	case utf8.RuneCountInString(r.Name) > MaxNameLength:
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	case r.Email == "":
		return dErrors.New(dErrors.CodeValidation, "email is required")
	case !email.IsValid(r.Email):
		return dErrors.New(dErrors.CodeValidation, "email is not a valid address")
	case !validPhone(r.Phone):
		return dErrors.New(dErrors.CodeValidation, "phone must have 10 to 15 digits")
	case math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount < 0:
		return dErrors.New(dErrors.CodeValidation, "amount must be a non-negative number")
	case utf8.RuneCountInString(r.City) > MaxCityLength:
		return dErrors.New(dErrors.CodeValidation, "city is too long")
	case utf8.RuneCountInString(r.Message) > MaxMessageLength:
		return dErrors.New(dErrors.CodeValidation, "message is too long")
	case utf8.RuneCountInString(r.Source) > MaxSourceLength:
		return dErrors.New(dErrors.CodeValidation, "source is too long")
	}
	if _, err := id.ParseLoanType(r.LoanType); err != nil {
		return err
	}
	return nil
}

// NormalizePhone keeps digits and a single leading plus sign.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) && r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validPhone(phone string) bool {
	digits := strings.TrimPrefix(phone, "+")
	return len(digits) >= MinPhoneDigits && len(digits) <= MaxPhoneDigits
}

// ListFilter narrows admin listings. Zero values mean no constraint.
type ListFilter struct {
	LoanType id.LoanType
	Email    string
	Limit    int
	Offset   int
}

// Clamp bounds paging to sane values.
func (f ListFilter) Clamp() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Email = email.Normalize(f.Email)
	return f
}

// Matches reports whether lead passes the non-paging parts of f.
func (f ListFilter) Matches(lead *Lead) bool {
	if f.LoanType != "" && lead.LoanType != f.LoanType {
		return false
	}
	if f.Email != "" && email.Normalize(lead.Email) != f.Email {
		return false
	}
	return true
}

type ListResponse struct {
	Leads  []*Lead `json:"leads"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
