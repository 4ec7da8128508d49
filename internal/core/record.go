package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UnmarshalJSON also reads the sale payload under its older "ventaDetails" key.
func (r *Record) UnmarshalJSON(b []byte) error {
	type plain Record
	var aux struct {
		plain
		VentaDetails *SaleDetails `json:"ventaDetails"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	if r.SaleDetails == nil && aux.VentaDetails != nil {
		r.SaleDetails = aux.VentaDetails
	}
	return nil
}

// Normalize brings a record to the current shape. Records without types get
// [type] from the legacy field, or [venta] when that is empty too. It is
// idempotent and never touches any other field.
func Normalize(r Record) Record {
	if len(r.Types) > 0 {
		return r
	}
	tag := strings.TrimSpace(r.LegacyType)
	if tag == "" {
		tag = TagSale
	}
	r.Types = []string{tag}
	return r
}

// Migrate normalizes every record of a collection into a new slice.
func Migrate(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Normalize(r.Clone())
	}
	return out
}

// SyncLegacyType keeps the single "type" field equal to the primary tag so
// older readers of the persisted data still work.
func (r *Record) SyncLegacyType() {
	if len(r.Types) > 0 {
		r.LegacyType = r.Types[0]
	}
}

// ValidationOptions tune entry validation.
type ValidationOptions struct {
	StrictDNI bool
}

// Validate checks a record at entry. Every problem is joined into a single
// error wrapping ErrValidation.
func (r Record) Validate(opts ValidationOptions) error {
	var errs []error
	if len(r.Types) == 0 {
		errs = append(errs, ErrNoTypes)
	}
	for _, t := range r.Types {
		if strings.TrimSpace(t) == "" {
			errs = append(errs, fmt.Errorf("empty type tag"))
			break
		}
	}
	if strings.TrimSpace(r.FirstName) == "" {
		errs = append(errs, ErrEmptyName)
	}
	switch dni := strings.TrimSpace(r.DNI); {
	case dni == "":
		errs = append(errs, ErrEmptyDNI)
	case opts.StrictDNI:
		if err := ValidateDNI(dni); err != nil {
			errs = append(errs, err)
		}
	}
	if r.Date.IsZero() {
		errs = append(errs, ErrZeroDate)
	}
	if err := r.Amount.Validate(); err != nil {
		errs = append(errs, err)
	}
	if r.SaleDetails != nil && r.SaleDetails.Quantity < 1 {
		errs = append(errs, ErrQuantity)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, errors.Join(errs...))
}
