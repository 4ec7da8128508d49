package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"gestor/internal/services"
	"gestor/internal/transfer"
)

type exportCmd struct {
	env    *env
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the whole ledger to a backup file" }
func (*exportCmd) Usage() string {
	return `gestorctl export [-o <file>|-o -]

  Writes backup_gestion_clientes_<date>.json in the current directory unless
  -o is given. Use -o - for stdout.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, - for stdout")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		records := svc.Store().Records()
		if c.output == "-" {
			return transfer.Export(c.env.out, records)
		}
		var buf bytes.Buffer
		if err := transfer.Export(&buf, records); err != nil {
			return err
		}
		name := c.output
		if name == "" {
			name = transfer.Filename(c.env.now().In(c.env.loc))
		}
		if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(c.env.out, "%d records exported to %s\n", len(records), filepath.Clean(name))
		return nil
	})
}

type importCmd struct {
	env *env
	yes bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace the whole ledger with a backup file" }
func (*importCmd) Usage() string {
	return `gestorctl import [-yes] <file>

  Replaces every record with the content of the backup. Asks for
  confirmation unless -yes is given.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Do not ask for confirmation")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	file, ok := singleArg(c.env, f, "backup file")
	if !ok {
		return subcommands.ExitUsageError
	}
	data, err := readLimited(file, transfer.MaxImportSize)
	if err != nil {
		fmt.Fprintf(c.env.errw, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	return c.env.withLedger(ctx, func(svc *services.RecordService) error {
		gateway := transfer.NewGateway(svc, c.env.ttl, nil, c.env.logger)
		staged, err := gateway.Stage(data)
		if err != nil {
			return err
		}
		if !c.yes && !c.confirm(svc.Store().Len(), staged.Count) {
			gateway.Discard(staged.Token)
			fmt.Fprintln(c.env.out, "import cancelled")
			return nil
		}
		n, err := gateway.Confirm(ctx, staged.Token)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.out, "%d records imported\n", n)
		return nil
	})
}

// confirm asks [y/N]; anything but y or yes declines.
func (c *importCmd) confirm(current, incoming int) bool {
	fmt.Fprintf(c.env.out, "This replaces %d records with %d from the backup. Continue? [y/N] ", current, incoming)
	line, err := bufio.NewReader(c.env.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes" || answer == "s" || answer == "si"
}

func readLimited(name string, limit int64) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s is larger than %d bytes", name, limit)
	}
	return data, nil
}
