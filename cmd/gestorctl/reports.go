package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"gestor/internal/core"
	"gestor/internal/query"
	"gestor/internal/receipt"
	"gestor/internal/report"
	"gestor/internal/services"
)

type historyCmd struct {
	env *env
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show every record of the client owning a record" }
func (*historyCmd) Usage() string {
	return `gestorctl history <id>
`
}
func (*historyCmd) SetFlags(*flag.FlagSet) {}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := singleArg(c.env, f, "record id")
	if !ok {
		return subcommands.ExitUsageError
	}
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		target, found := svc.Store().Get(id)
		if !found {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		h := report.History(svc.Store().Records(), target)
		return c.env.printMarkdown(historyMarkdown(target, h))
	})
}

type dashboardCmd struct {
	env       *env
	q         string
	completed bool
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "show category totals" }
func (*dashboardCmd) Usage() string {
	return `gestorctl dashboard [-q <text>] [-completed]

  Totals of the active records matching the search, or of completed records.
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.q, "q", "", "Search text")
	f.BoolVar(&c.completed, "completed", false, "Total completed records instead")
}

func (c *dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		records := svc.Store().Records()
		if c.completed {
			return c.env.printMarkdown(totalsMarkdown("Completados", report.Completed(records)))
		}
		visible := query.Filter(records, query.TabDashboard, c.q)
		return c.env.printMarkdown(totalsMarkdown("Dashboard", report.Dashboard(visible)) + "\n" + recordsMarkdown(visible))
	})
}

type statsCmd struct {
	env    *env
	period string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "show income for the current day, week or month" }
func (*statsCmd) Usage() string {
	return `gestorctl stats [-p day|week|month]
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "month", "Period: day, week or month")
}

func (c *statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	period, err := report.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(c.env.errw, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		stats := report.PeriodStats(svc.Store().Records(), period, c.env.now().In(c.env.loc), c.env.policy)
		return c.env.printMarkdown(statsMarkdown(stats))
	})
}

type receiptCmd struct {
	env    *env
	format string
	mail   bool
}

func (*receiptCmd) Name() string     { return "receipt" }
func (*receiptCmd) Synopsis() string { return "print the receipt of a record" }
func (*receiptCmd) Usage() string {
	return `gestorctl receipt [-format md|html] [-mail] <id>

  Prints the receipt. With -mail, prints the mailto link to send it instead.
`
}

func (c *receiptCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "md", "Output format: md or html")
	f.BoolVar(&c.mail, "mail", false, "Print the mail intent instead of the receipt")
}

func (c *receiptCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := singleArg(c.env, f, "record id")
	if !ok {
		return subcommands.ExitUsageError
	}
	if c.format != "md" && c.format != "html" {
		fmt.Fprintf(c.env.errw, "Error: unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		r, found := svc.Store().Get(id)
		if !found {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		if c.mail {
			m := receipt.MailIntent(r)
			fmt.Fprintf(c.env.out, "Asunto: %s\n\n%s\n\n%s\n", m.Subject, m.Body, m.URL)
			return nil
		}
		rc := receipt.Build(r, c.env.loc)
		if c.format == "html" {
			html, err := rc.HTML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(c.env.out, html)
			return err
		}
		if err := c.env.printMarkdown(rc.Markdown()); err != nil {
			return err
		}
		fmt.Fprintf(c.env.errw, "PDF: %s\n", receipt.PDFFilename(r))
		return nil
	})
}
