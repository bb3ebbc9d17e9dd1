// Command contentctl runs operator tasks against the content database:
// schema bootstrap, seed import, legacy payload migration and workbook
// export.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/pai-solutions/internal/catalog"
	"github.com/p-n-ai/pai-solutions/internal/content"
	"github.com/p-n-ai/pai-solutions/internal/export"
	"github.com/p-n-ai/pai-solutions/internal/platform/config"
	"github.com/p-n-ai/pai-solutions/internal/platform/database"
)

const usage = `usage: contentctl <command> [flags]

commands:
  migrate          create or update the database schema
  seed             import YAML seed files (-dir)
  migrate-legacy   rewrite legacy question payloads (-batch, -dry-run)
  export           write a resource workbook (-resource, -out)
`

// operator is the authorizer for command-line tasks, which run with full
// database access anyway.
type operator struct{}

func (operator) VerifyAdmin(context.Context) (bool, error) { return true, nil }

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("reading .env", "error", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("contentctl failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("no command given")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "migrate":
		return withDB(ctx, cfg, func(db *database.DB) error {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "schema up to date")
			return nil
		})
	case "seed":
		flags := flag.NewFlagSet("seed", flag.ContinueOnError)
		dir := flags.String("dir", cfg.SeedPath, "directory of YAML seed files")
		if err := flags.Parse(rest); err != nil {
			return err
		}
		return withDB(ctx, cfg, func(db *database.DB) error {
			return seed(ctx, db, *dir, out)
		})
	case "migrate-legacy":
		flags := flag.NewFlagSet("migrate-legacy", flag.ContinueOnError)
		batch := flags.Int("batch", 200, "questions per batch")
		dryRun := flags.Bool("dry-run", false, "report without writing")
		if err := flags.Parse(rest); err != nil {
			return err
		}
		return withDB(ctx, cfg, func(db *database.DB) error {
			store, err := content.NewPostgresStore(db.Pool)
			if err != nil {
				return err
			}
			report, err := content.MigrateLegacyQuestions(ctx, store, *batch, *dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "scanned %d, migrated %d, failed %d\n", report.Scanned, report.Migrated, len(report.Failed))
			for _, id := range report.Failed {
				fmt.Fprintf(out, "  failed: %s\n", id)
			}
			return nil
		})
	case "export":
		flags := flag.NewFlagSet("export", flag.ContinueOnError)
		resourceID := flags.String("resource", "", "resource id")
		path := flags.String("out", "", "output .xlsx path")
		if err := flags.Parse(rest); err != nil {
			return err
		}
		if *resourceID == "" || *path == "" {
			return errors.New("export needs -resource and -out")
		}
		return withDB(ctx, cfg, func(db *database.DB) error {
			return exportResource(ctx, db, *resourceID, *path, out)
		})
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withDB(ctx context.Context, cfg *config.Config, fn func(*database.DB) error) error {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func newService(db *database.DB) (*content.Service, error) {
	store, err := content.NewPostgresStore(db.Pool)
	if err != nil {
		return nil, err
	}
	return content.NewService(store, operator{}, nil), nil
}

func seed(ctx context.Context, db *database.DB, dir string, out io.Writer) error {
	files, err := catalog.Load(dir)
	if err != nil {
		return err
	}
	svc, err := newService(db)
	if err != nil {
		return err
	}
	report, err := catalog.NewImporter(svc).ImportAll(ctx, files)
	fmt.Fprintf(out, "imported %d resources, %d nodes, %d questions, %d solutions\n",
		report.Resources, report.Nodes, report.Questions, report.Solutions)
	return err
}

func exportResource(ctx context.Context, db *database.DB, resourceID, path string, out io.Writer) error {
	svc, err := newService(db)
	if err != nil {
		return err
	}
	f, res, err := export.NewExporter(svc, operator{}).Workbook(ctx, resourceID)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	fmt.Fprintf(out, "exported %q to %s\n", res.Title, path)
	return nil
}
