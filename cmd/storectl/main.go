// Command storectl runs operator tasks against the store database: schema
// migration, admin promotion and catalog import.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"evo-store/internal/catalog"
	"evo-store/internal/config"
	"evo-store/internal/database"
	"evo-store/internal/events"
	"evo-store/internal/invoice"
	"evo-store/internal/model"
	"evo-store/internal/notify"
	"evo-store/internal/repository"
	"evo-store/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const usage = `usage: storectl <command> [flags]

commands:
  migrate                       apply the database schema
  check-db                      verify database connectivity
  promote -email <addr>         grant the admin role to a registered user
  import-catalog -file <name>   upsert products from a gzipped JSON-lines file
  sample-catalog -out <path>    write a sample catalog file for development
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	// sample-catalog needs no configuration or database.
	if cmd == "sample-catalog" {
		return sampleCatalog(args, out)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger, "storectl")

	switch cmd {
	case "migrate":
		return withPool(ctx, cfg, logger, func(pool *pgxpool.Pool) error {
			return database.Migrate(ctx, pool, logger)
		})
	case "check-db":
		return withPool(ctx, cfg, logger, func(pool *pgxpool.Pool) error {
			return checkDB(ctx, pool, out)
		})
	case "promote":
		return promote(ctx, cfg, logger, args, out)
	case "import-catalog":
		return importCatalog(ctx, cfg, logger, args, out)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func withPool(ctx context.Context, cfg *config.Config, logger zerolog.Logger, fn func(*pgxpool.Pool) error) error {
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()
	return fn(pool)
}

func checkDB(ctx context.Context, pool *pgxpool.Pool, out io.Writer) error {
	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	fmt.Fprintf(out, "Successfully connected to database: %s\n", dbName)
	return nil
}

func promote(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	email := fs.String("email", "", "email of the user to promote")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" {
		return fmt.Errorf("-email is required: %w", errUsage)
	}

	return withPool(ctx, cfg, logger, func(pool *pgxpool.Pool) error {
		admin := service.NewAdminService(
			repository.NewOrderRepository(pool, logger),
			repository.NewPaymentRepository(pool, logger),
			repository.NewUserRepository(pool, logger),
			repository.NewAnalyticsRepository(pool, logger),
			notify.NewNotifier(nil, cfg.Store, cfg.Mail.Timeout, logger),
			events.NopPublisher{},
			invoice.NewRenderer(cfg.Store),
			logger,
		)
		if err := admin.PromoteUser(ctx, *email); err != nil {
			if errors.Is(err, model.ErrUserNotFound) {
				return fmt.Errorf("no user registered with email %s", *email)
			}
			return err
		}
		fmt.Fprintf(out, "%s is now an admin\n", *email)
		return nil
	})
}

func importCatalog(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import-catalog", flag.ContinueOnError)
	name := fs.String("file", "", "catalog file name (S3 key suffix or local path)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *name == "" {
		return fmt.Errorf("-file is required: %w", errUsage)
	}

	fileLoader := catalog.NewFileLoader(logger)
	var s3Loader catalog.Loader
	if cfg.S3.Enabled {
		l, err := catalog.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	}
	loader := catalog.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	return withPool(ctx, cfg, logger, func(pool *pgxpool.Pool) error {
		importer := catalog.NewImporter(loader, repository.NewProductRepository(pool, logger), logger)
		result, err := importer.Import(ctx, *name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "loaded %d, upserted %d, failed %d\n", result.Loaded, result.Upserted, result.Failed)
		if result.Failed > 0 {
			return fmt.Errorf("%d products failed to import", result.Failed)
		}
		return nil
	})
}

func sampleCatalog(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sample-catalog", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("out", "data/catalog/sample.jsonl.gz", "output path")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	records := catalog.SampleRecords()
	if err := catalog.WriteFile(*path, records); err != nil {
		return err
	}
	fmt.Fprintf(out, "Created %s with %d products\n", *path, len(records))
	return nil
}
