// Package accounts holds the typed sub-admin and company records managed by
// super-admins, and the field-level update union used to edit them.
package accounts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidForm = errors.New("invalid sub-admin form")

type CompanyDetails struct {
	Name    string `json:"name"`
	GSTIN   string `json:"gstin,omitempty"`
	Address string `json:"address,omitempty"`
}

type BankDetails struct {
	AccountHolder string `json:"accountHolder"`
	AccountNumber string `json:"accountNumber"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bankName"`
}

type SubAdminForm struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Phone    string         `json:"phone,omitempty"`
	Password string         `json:"password,omitempty"`
	Company  CompanyDetails `json:"company"`
	Bank     BankDetails    `json:"bankdetails"`
}

type SubAdmin struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Phone   string         `json:"phone,omitempty"`
	Company CompanyDetails `json:"company"`
	Bank    BankDetails    `json:"bankdetails"`
	Active  bool           `json:"active"`
}

// Form returns the editable part of a stored sub-admin.
func (s SubAdmin) Form() SubAdminForm {
	return SubAdminForm{
		Name:    s.Name,
		Email:   s.Email,
		Phone:   s.Phone,
		Company: s.Company,
		Bank:    s.Bank,
	}
}

type Section string

const (
	SectionProfile Section = "profile"
	SectionCompany Section = "company"
	SectionBank    Section = "bank"
)

type ProfileField string

const (
	ProfileName     ProfileField = "name"
	ProfileEmail    ProfileField = "email"
	ProfilePhone    ProfileField = "phone"
	ProfilePassword ProfileField = "password"
)

type CompanyField string

const (
	CompanyName    CompanyField = "name"
	CompanyGSTIN   CompanyField = "gstin"
	CompanyAddress CompanyField = "address"
)

type BankField string

const (
	BankAccountHolder BankField = "accountHolder"
	BankAccountNumber BankField = "accountNumber"
	BankIFSC          BankField = "ifsc"
	BankName          BankField = "bankName"
)

// Update is a single field change in one form section. The concrete types
// are ProfileUpdate, CompanyUpdate and BankUpdate.
type Update interface {
	apply(form *SubAdminForm) error
}

type ProfileUpdate struct {
	Field ProfileField
	Value string
}

func (u ProfileUpdate) apply(form *SubAdminForm) error {
	switch u.Field {
	case ProfileName:
		form.Name = u.Value
	case ProfileEmail:
		form.Email = u.Value
	case ProfilePhone:
		form.Phone = u.Value
	case ProfilePassword:
		form.Password = u.Value
	default:
		return fmt.Errorf("%w: unknown profile field %q", ErrInvalidForm, u.Field)
	}
	return nil
}

type CompanyUpdate struct {
	Field CompanyField
	Value string
}

func (u CompanyUpdate) apply(form *SubAdminForm) error {
	switch u.Field {
	case CompanyName:
		form.Company.Name = u.Value
	case CompanyGSTIN:
		form.Company.GSTIN = strings.ToUpper(u.Value)
	case CompanyAddress:
		form.Company.Address = u.Value
	default:
		return fmt.Errorf("%w: unknown company field %q", ErrInvalidForm, u.Field)
	}
	return nil
}

type BankUpdate struct {
	Field BankField
	Value string
}

func (u BankUpdate) apply(form *SubAdminForm) error {
	switch u.Field {
	case BankAccountHolder:
		form.Bank.AccountHolder = u.Value
	case BankAccountNumber:
		form.Bank.AccountNumber = u.Value
	case BankIFSC:
		form.Bank.IFSC = strings.ToUpper(u.Value)
	case BankName:
		form.Bank.BankName = u.Value
	default:
		return fmt.Errorf("%w: unknown bank field %q", ErrInvalidForm, u.Field)
	}
	return nil
}

// FieldChange is the wire form of an Update.
type FieldChange struct {
	Section Section `json:"section"`
	Field   string  `json:"field"`
	Value   string  `json:"value"`
}

func ParseChange(change FieldChange) (Update, error) {
	value := strings.TrimSpace(change.Value)
	switch change.Section {
	case SectionProfile:
		return ProfileUpdate{Field: ProfileField(change.Field), Value: value}, nil
	case SectionCompany:
		return CompanyUpdate{Field: CompanyField(change.Field), Value: value}, nil
	case SectionBank:
		return BankUpdate{Field: BankField(change.Field), Value: value}, nil
	default:
		return nil, fmt.Errorf("%w: unknown section %q", ErrInvalidForm, change.Section)
	}
}

// Apply returns a copy of form with every update applied in order. The
// input form is left untouched when any update fails.
func Apply(form SubAdminForm, updates ...Update) (SubAdminForm, error) {
	next := form
	for _, u := range updates {
		if u == nil {
			continue
		}
		if err := u.apply(&next); err != nil {
			return form, err
		}
	}
	return next, nil
}

var (
	ifscPattern    = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	gstinPattern   = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{13}$`)
	accountPattern = regexp.MustCompile(`^[0-9]{9,18}$`)
)

// Validate checks the form before it is sent upstream. Passwords are only
// mandatory when creating an account.
func (f SubAdminForm) Validate(requirePassword bool) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidForm)
	}
	if !strings.Contains(f.Email, "@") {
		return fmt.Errorf("%w: email is invalid", ErrInvalidForm)
	}
	if requirePassword && len(f.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidForm)
	}
	if strings.TrimSpace(f.Company.Name) == "" {
		return fmt.Errorf("%w: company name is required", ErrInvalidForm)
	}
	if f.Company.GSTIN != "" && !gstinPattern.MatchString(f.Company.GSTIN) {
		return fmt.Errorf("%w: gstin is invalid", ErrInvalidForm)
	}

	bank := f.Bank
	if bank == (BankDetails{}) {
		return nil
	}
	if strings.TrimSpace(bank.AccountHolder) == "" || strings.TrimSpace(bank.BankName) == "" {
		return fmt.Errorf("%w: bank account holder and bank name are required", ErrInvalidForm)
	}
	if !accountPattern.MatchString(bank.AccountNumber) {
		return fmt.Errorf("%w: bank account number is invalid", ErrInvalidForm)
	}
	if !ifscPattern.MatchString(bank.IFSC) {
		return fmt.Errorf("%w: ifsc is invalid", ErrInvalidForm)
	}
	return nil
}
