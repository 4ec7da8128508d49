// Command gestorctl manages the client ledger from the terminal, working
// directly on the configured slot.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/google/subcommands"

	"gestor/internal/amqp"
	"gestor/internal/cli"
	"gestor/internal/config"
	"gestor/internal/log"
	"gestor/internal/report"
	"gestor/internal/services"
)

// env is what every subcommand needs to reach the ledger and the terminal.
type env struct {
	open   func(ctx context.Context) (*services.RecordService, func(), error)
	now    func() time.Time
	loc    *time.Location
	policy report.PendingPolicy
	ttl    time.Duration
	logger *log.Logger

	in    io.Reader
	out   io.Writer
	errw  io.Writer
	plain bool
}

func main() {
	plain := flag.Bool("plain", false, "print raw markdown instead of rendering it")
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	e := &env{now: time.Now, in: os.Stdin, out: os.Stdout, errw: os.Stderr}
	for _, c := range commands(e) {
		commander.Register(c.cmd, c.group)
	}

	flag.Parse()
	e.plain = *plain

	cli.LoadEnvFile()
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(subcommands.ExitFailure))
	}
	if err := e.configure(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(subcommands.ExitFailure))
	}

	os.Exit(int(commander.Execute(context.Background())))
}

type registration struct {
	cmd   subcommands.Command
	group string
}

func commands(e *env) []registration {
	return []registration{
		{&addCmd{env: e}, "records"},
		{&editCmd{env: e}, "records"},
		{&listCmd{env: e}, "records"},
		{&showCmd{env: e}, "records"},
		{&completeCmd{env: e, completed: true}, "records"},
		{&completeCmd{env: e, completed: false}, "records"},
		{&deleteCmd{env: e}, "records"},
		{&historyCmd{env: e}, "reports"},
		{&dashboardCmd{env: e}, "reports"},
		{&statsCmd{env: e}, "reports"},
		{&receiptCmd{env: e}, "reports"},
		{&exportCmd{env: e}, "backup"},
		{&importCmd{env: e}, "backup"},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configure binds e to the slot, broker and reporting options of cfg. Logs
// go to stderr so command output stays clean.
func (e *env) configure(cfg *config.Config) error {
	policy, err := report.ParsePendingPolicy(cfg.PendingPolicy)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(level)
	logCfg.Format = cfg.LogFormat
	logCfg.Component = log.ComponentCLI
	logCfg.Output = e.errw

	e.logger = log.New(logCfg)
	e.loc = cfg.Location()
	e.policy = policy
	e.ttl = cfg.ImportTTL
	e.open = func(ctx context.Context) (*services.RecordService, func(), error) {
		store, slot, err := cli.OpenLedger(ctx, cfg, e.logger)
		if err != nil {
			return nil, nil, err
		}
		closers := []func() error{slot.Close}

		var publisher services.EventPublisher
		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, e.logger)
			if err != nil {
				e.logger.Warn("AMQP unavailable, changes will be picked up by polling", log.FieldError, err)
			} else {
				publisher = client
				closers = append(closers, client.Close)
			}
		}

		cleanup := func() {
			for i := len(closers) - 1; i >= 0; i-- {
				if err := closers[i](); err != nil {
					e.logger.Warn("Cleanup failed", log.FieldError, err)
				}
			}
		}
		return cli.NewRecordService(store, cfg, publisher, e.logger), cleanup, nil
	}
	return nil
}

// withLedger opens the ledger, runs fn and maps its error to an exit status.
func (e *env) withLedger(ctx context.Context, fn func(*services.RecordService) error) subcommands.ExitStatus {
	svc, cleanup, err := e.open(ctx)
	if err != nil {
		fmt.Fprintf(e.errw, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	if err := fn(svc); err != nil {
		fmt.Fprintf(e.errw, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
