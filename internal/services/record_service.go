// Package services holds the record lifecycle: every mutation of the ledger
// goes through RecordService.
package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"gestor/internal/amqp"
	"gestor/internal/core"
	"gestor/internal/ledger"
	"gestor/internal/log"
)

// EventPublisher announces record changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, id, op string) error
}

// RecordInput carries the editable fields of a record. SaleDetails is only
// applied when non-nil.
type RecordInput struct {
	Types       []string          `json:"types"`
	FirstName   string            `json:"firstName"`
	LastName    string            `json:"lastName"`
	DNI         string            `json:"dni"`
	Phone       string            `json:"phone,omitempty"`
	Date        core.Date         `json:"date"`
	Summary     string            `json:"summary,omitempty"`
	Amount      core.Money        `json:"amount"`
	SaleDetails *core.SaleDetails `json:"saleDetails,omitempty"`
}

// InputFromRecord returns the editable fields of r, ready to be partially
// overwritten and passed to Update.
func InputFromRecord(r core.Record) RecordInput {
	var details *core.SaleDetails
	if r.SaleDetails != nil {
		d := *r.SaleDetails
		details = &d
	}
	return RecordInput{
		Types:       slices.Clone(r.Types),
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DNI:         r.DNI,
		Phone:       r.Phone,
		Date:        r.Date,
		Summary:     r.Summary,
		Amount:      r.Amount,
		SaleDetails: details,
	}
}

// Option configures a RecordService.
type Option func(*RecordService)

// WithPublisher publishes an event after each successful mutation.
func WithPublisher(p EventPublisher) Option {
	return func(s *RecordService) { s.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *RecordService) { s.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *RecordService) { s.newID = newID }
}

// WithValidation sets entry validation options.
func WithValidation(opts core.ValidationOptions) Option {
	return func(s *RecordService) { s.validation = opts }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *RecordService) { s.logger = l }
}

// RecordService orchestrates record mutations across the store and AMQP
type RecordService struct {
	store      *ledger.Store
	publisher  EventPublisher
	now        func() time.Time
	newID      func() string
	validation core.ValidationOptions
	logger     *log.Logger
}

func NewRecordService(store *ledger.Store, opts ...Option) *RecordService {
	s := &RecordService{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentRecords)
	return s
}

// Store exposes the underlying ledger for read paths.
func (s *RecordService) Store() *ledger.Store {
	return s.store
}

func (in RecordInput) normalized() RecordInput {
	types := make([]string, 0, len(in.Types))
	for _, t := range in.Types {
		t = strings.TrimSpace(t)
		if t != "" && slices.Contains(types, t) {
			continue
		}
		types = append(types, t)
	}
	in.Types = types
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.DNI = core.NormalizeDNI(in.DNI)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Summary = strings.TrimSpace(in.Summary)
	return in
}

// Create validates input, assigns an id and creation time and prepends the
// record so it sorts before every existing one.
func (s *RecordService) Create(ctx context.Context, input RecordInput) (core.Record, error) {
	in := input.normalized()
	r := core.Record{
		ID:        s.newID(),
		Types:     in.Types,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		DNI:       in.DNI,
		Phone:     in.Phone,
		Date:      in.Date,
		Summary:   in.Summary,
		Amount:    in.Amount,
		CreatedAt: s.now().UnixMilli(),
	}
	if in.SaleDetails != nil && r.HasType(core.TagSale) {
		details := *in.SaleDetails
		r.SaleDetails = &details
	}
	r.SyncLegacyType()

	if err := r.Validate(s.validation); err != nil {
		return core.Record{}, err
	}

	err := s.store.Apply(ctx, func(records []core.Record) ([]core.Record, error) {
		return append([]core.Record{r}, records...), nil
	})
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}

	s.logger.InfoContext(ctx, "Record created",
		log.NewFields().WithOperation(log.OpCreate).WithRecord(r.ID, r.Types, r.Amount.Cents).ToSlice()...)
	s.publish(ctx, r.ID, amqp.OpCreate)
	return r.Clone(), nil
}

// Update merges input over the record with id. The id, creation time and
// completion flag are kept. Sale details are replaced only when provided for
// a record tagged venta; stored details are never cleared.
func (s *RecordService) Update(ctx context.Context, id string, input RecordInput) (core.Record, error) {
	in := input.normalized()
	var updated core.Record

	err := s.store.Apply(ctx, func(records []core.Record) ([]core.Record, error) {
		i := slices.IndexFunc(records, func(r core.Record) bool { return r.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		r := records[i]
		r.Types = in.Types
		r.FirstName = in.FirstName
		r.LastName = in.LastName
		r.DNI = in.DNI
		r.Phone = in.Phone
		r.Date = in.Date
		r.Summary = in.Summary
		r.Amount = in.Amount
		if in.SaleDetails != nil && r.HasType(core.TagSale) {
			details := *in.SaleDetails
			r.SaleDetails = &details
		}
		r.UpdatedAt = s.now().UnixMilli()
		r.SyncLegacyType()

		if err := r.Validate(s.validation); err != nil {
			return nil, err
		}
		records[i] = r
		updated = r
		return records, nil
	})
	if err != nil {
		return core.Record{}, err
	}

	s.logger.InfoContext(ctx, "Record updated",
		log.NewFields().WithOperation(log.OpUpdate).WithRecord(updated.ID, updated.Types, updated.Amount.Cents).ToSlice()...)
	s.publish(ctx, updated.ID, amqp.OpUpdate)
	return updated.Clone(), nil
}

// SetCompleted changes only the completion flag. An unknown id is a no-op.
func (s *RecordService) SetCompleted(ctx context.Context, id string, completed bool) error {
	changed := false
	err := s.store.Apply(ctx, func(records []core.Record) ([]core.Record, error) {
		i := slices.IndexFunc(records, func(r core.Record) bool { return r.ID == id })
		if i < 0 || records[i].Completed == completed {
			return nil, ledger.ErrUnchanged
		}
		records[i].Completed = completed
		changed = true
		return records, nil
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	op, logOp := amqp.OpComplete, log.OpComplete
	if !completed {
		op, logOp = amqp.OpRestore, log.OpRestore
	}
	s.logger.InfoContext(ctx, "Record completion changed",
		log.FieldOperation, logOp, log.FieldRecordID, id)
	s.publish(ctx, id, op)
	return nil
}

// Delete removes the record permanently. Deleting an absent id succeeds.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	removed := false
	err := s.store.Apply(ctx, func(records []core.Record) ([]core.Record, error) {
		next := slices.DeleteFunc(records, func(r core.Record) bool { return r.ID == id })
		if len(next) == len(records) {
			return nil, ledger.ErrUnchanged
		}
		removed = true
		return next, nil
	})
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	s.logger.InfoContext(ctx, "Record deleted", log.FieldOperation, log.OpDelete, log.FieldRecordID, id)
	s.publish(ctx, id, amqp.OpDelete)
	return nil
}

// Import replaces the whole collection. Records are normalized like a load.
func (s *RecordService) Import(ctx context.Context, records []core.Record) error {
	if err := s.store.ReplaceAll(ctx, records); err != nil {
		return fmt.Errorf("import records: %w", err)
	}
	s.logger.InfoContext(ctx, "Records imported", log.FieldOperation, log.OpImport, log.FieldCount, len(records))
	s.publish(ctx, "", amqp.OpImport)
	return nil
}

func (s *RecordService) publish(ctx context.Context, id, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, id, op); err != nil {
		// The mutation is already persisted; mirrors catch up on the next event.
		s.logger.ErrorContext(ctx, "Failed to publish record event",
			log.FieldRecordID, id, log.FieldOperation, op, log.FieldError, err)
	}
}
