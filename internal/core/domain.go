package core

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Category tags. The set is open: any non-empty tag is accepted and can be
// used as a tab, these are the ones the reports know about.
const (
	TagSale    = "venta"
	TagPending = "por_pagar"
	TagRepair  = "reparacion"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar date without a time component.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	SaleDetails struct {
		ProductName   string `json:"productName"`
		ProductCode   string `json:"productCode"`
		Quantity      int    `json:"quantity"`
		PaymentMethod string `json:"paymentMethod"`
	}

	// Record is one ledger entry: a sale, a repair or a pending payment.
	Record struct {
		ID          string       `json:"id"`
		Types       []string     `json:"types"`
		LegacyType  string       `json:"type,omitempty"`
		FirstName   string       `json:"firstName"`
		LastName    string       `json:"lastName"`
		DNI         string       `json:"dni"`
		Phone       string       `json:"phone,omitempty"`
		Date        Date         `json:"date"`
		Summary     string       `json:"summary,omitempty"`
		Amount      Money        `json:"amount"`
		SaleDetails *SaleDetails `json:"saleDetails,omitempty"`
		Completed   bool         `json:"completed"`
		CreatedAt   int64        `json:"createdAt,omitempty"`
		UpdatedAt   int64        `json:"updatedAt,omitempty"`
	}
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("record not found")
	ErrInvalidFormat = errors.New("invalid format")
	ErrParse         = errors.New("parse error")
)

var (
	ErrNoTypes       = errors.New("at least one type is required")
	ErrEmptyName     = errors.New("first name is required")
	ErrEmptyDNI      = errors.New("dni is required")
	ErrInvalidDNI    = errors.New("dni check letter does not match")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrZeroDate      = errors.New("date is required")
	ErrQuantity      = errors.New("sale quantity must be at least 1")
)

// NewDate returns the calendar date y-m-d.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD and full timestamps, keeping only the date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// In returns midnight of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON reads YYYY-MM-DD. Any other value decodes as the zero Date
// instead of failing the enclosing collection.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

// HasType reports whether tag is one of the record's types.
func (r Record) HasType(tag string) bool {
	return slices.Contains(r.Types, tag)
}

// PrimaryType is the first type, used for legacy display.
func (r Record) PrimaryType() string {
	if len(r.Types) == 0 {
		return r.LegacyType
	}
	return r.Types[0]
}

// FullName joins first and last name.
func (r Record) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Clone returns a deep copy so callers never share slices or pointers with the store.
func (r Record) Clone() Record {
	c := r
	c.Types = slices.Clone(r.Types)
	if r.SaleDetails != nil {
		sd := *r.SaleDetails
		c.SaleDetails = &sd
	}
	return c
}

// CloneAll deep copies a collection.
func CloneAll(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
