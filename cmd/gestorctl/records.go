package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"gestor/internal/core"
	"gestor/internal/query"
	"gestor/internal/services"
)

// recordFlags are the editable fields shared by add and edit.
type recordFlags struct {
	types     string
	firstName string
	lastName  string
	dni       string
	phone     string
	date      string
	summary   string
	amount    string
	product   string
	code      string
	quantity  int
	payment   string
}

func (rf *recordFlags) register(f *flag.FlagSet) {
	f.StringVar(&rf.types, "types", "", "Comma separated tags, e.g. venta,por_pagar")
	f.StringVar(&rf.firstName, "first", "", "Client first name")
	f.StringVar(&rf.lastName, "last", "", "Client last name")
	f.StringVar(&rf.dni, "dni", "", "Client DNI/NIE")
	f.StringVar(&rf.phone, "phone", "", "Client phone")
	f.StringVar(&rf.date, "date", "", "Business date YYYY-MM-DD (defaults to today on add)")
	f.StringVar(&rf.summary, "summary", "", "Free text summary")
	f.StringVar(&rf.amount, "amount", "", "Amount in euros, dot or comma decimals")
	f.StringVar(&rf.product, "product", "", "Sale: product name")
	f.StringVar(&rf.code, "code", "", "Sale: product code")
	f.IntVar(&rf.quantity, "qty", 1, "Sale: quantity")
	f.StringVar(&rf.payment, "payment", "", "Sale: payment method")
}

// apply copies the flags that were set on the command line over in.
func (rf *recordFlags) apply(f *flag.FlagSet, in services.RecordInput) (services.RecordInput, error) {
	var errs []error
	sale := false
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "types":
			in.Types = splitTypes(rf.types)
		case "first":
			in.FirstName = rf.firstName
		case "last":
			in.LastName = rf.lastName
		case "dni":
			in.DNI = rf.dni
		case "phone":
			in.Phone = rf.phone
		case "summary":
			in.Summary = rf.summary
		case "date":
			d, err := core.ParseDate(rf.date)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %v", core.ErrValidation, err))
				return
			}
			in.Date = d
		case "amount":
			cents, err := core.ParseAmount(rf.amount)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %v", core.ErrValidation, err))
				return
			}
			in.Amount = core.Money{Cents: cents}
		case "product", "code", "qty", "payment":
			sale = true
		}
	})
	if sale {
		details := core.SaleDetails{Quantity: 1}
		if in.SaleDetails != nil {
			details = *in.SaleDetails
		}
		f.Visit(func(fl *flag.Flag) {
			switch fl.Name {
			case "product":
				details.ProductName = rf.product
			case "code":
				details.ProductCode = rf.code
			case "qty":
				details.Quantity = rf.quantity
			case "payment":
				details.PaymentMethod = rf.payment
			}
		})
		in.SaleDetails = &details
	}
	return in, errors.Join(errs...)
}

func splitTypes(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// singleArg returns the only positional argument, usually a record id.
func singleArg(e *env, f *flag.FlagSet, what string) (string, bool) {
	if f.NArg() != 1 {
		fmt.Fprintf(e.errw, "Error: expected exactly one %s\n", what)
		return "", false
	}
	return f.Arg(0), true
}

type addCmd struct {
	env *env
	rf  recordFlags
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "create a record" }
func (*addCmd) Usage() string {
	return `gestorctl add -types <tags> -first <name> -dni <dni> -amount <euros> [-date <date>] [...]

  Creates a record and prints its id.
`
}
func (c *addCmd) SetFlags(f *flag.FlagSet) { c.rf.register(f) }

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	now := c.env.now().In(c.env.loc)
	base := services.RecordInput{Date: core.NewDate(now.Year(), int(now.Month()), now.Day())}
	in, err := c.rf.apply(f, base)
	if err != nil {
		fmt.Fprintf(c.env.errw, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		r, err := svc.Create(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.env.out, r.ID)
		return nil
	})
}

type editCmd struct {
	env *env
	rf  recordFlags
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "update fields of a record" }
func (*editCmd) Usage() string {
	return `gestorctl edit [-first <name>] [-amount <euros>] [...] <id>

  Updates only the given fields. Completion state is kept.
`
}
func (c *editCmd) SetFlags(f *flag.FlagSet) { c.rf.register(f) }

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := singleArg(c.env, f, "record id")
	if !ok {
		return subcommands.ExitUsageError
	}
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		current, found := svc.Store().Get(id)
		if !found {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		in, err := c.rf.apply(f, services.InputFromRecord(current))
		if err != nil {
			return err
		}
		if _, err := svc.Update(ctx, id, in); err != nil {
			return err
		}
		fmt.Fprintf(c.env.out, "updated %s\n", id)
		return nil
	})
}

type listCmd struct {
	env *env
	tab string
	q   string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list records of a tab" }
func (*listCmd) Usage() string {
	return `gestorctl list [-tab dashboard|venta|por_pagar|reparacion|completados] [-q <text>]

  Lists the records visible in a tab, optionally filtered by dni, name, phone or id.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.tab, "tab", query.TabDashboard, "Tab to show")
	f.StringVar(&c.q, "q", "", "Search text")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		records := query.Filter(svc.Store().Records(), c.tab, c.q)
		return c.env.printMarkdown(recordsMarkdown(records))
	})
}

type showCmd struct {
	env *env
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "print a record as JSON" }
func (*showCmd) Usage() string {
	return `gestorctl show <id>
`
}
func (*showCmd) SetFlags(*flag.FlagSet) {}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := singleArg(c.env, f, "record id")
	if !ok {
		return subcommands.ExitUsageError
	}
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		r, found := svc.Store().Get(id)
		if !found {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		enc := json.NewEncoder(c.env.out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	})
}

// completeCmd implements both complete and restore.
type completeCmd struct {
	env       *env
	completed bool
}

func (c *completeCmd) Name() string {
	if c.completed {
		return "complete"
	}
	return "restore"
}

func (c *completeCmd) Synopsis() string {
	if c.completed {
		return "mark a record as completed"
	}
	return "move a completed record back to its tab"
}

func (c *completeCmd) Usage() string {
	return "gestorctl " + c.Name() + " <id>\n"
}
func (*completeCmd) SetFlags(*flag.FlagSet) {}

func (c *completeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := singleArg(c.env, f, "record id")
	if !ok {
		return subcommands.ExitUsageError
	}
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		return svc.SetCompleted(ctx, id, c.completed)
	})
}

type deleteCmd struct {
	env *env
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "permanently delete a record" }
func (*deleteCmd) Usage() string {
	return `gestorctl delete <id>
`
}
func (*deleteCmd) SetFlags(*flag.FlagSet) {}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := singleArg(c.env, f, "record id")
	if !ok {
		return subcommands.ExitUsageError
	}
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		return svc.Delete(ctx, id)
	})
}
