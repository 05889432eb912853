package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/sdig/erddap/info/pkg/constraint"
	"github.com/sdig/erddap/info/pkg/dataset"
	"github.com/sdig/erddap/info/pkg/erddap"
	"github.com/sdig/erddap/info/pkg/gapfill"
	"github.com/sdig/erddap/info/pkg/server"
	"github.com/sdig/erddap/utils/pkg/logger"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	jsonLogsFlag := flag.Bool("json-logs", false, "write logs as JSON lines")
	urlFlag := flag.String("url", "", "tabledap dataset URL, e.g. https://data.pmel.noaa.gov/pmel/erddap/tabledap/CGBN_Canada")
	timeoutFlag := flag.Duration("timeout", 60*time.Second, "timeout for each request to the ERDDAP server")
	upstreamRPSFlag := flag.Float64("upstream-requests-per-second", 0, "limit on requests to ERDDAP servers (0 = unlimited)")

	// Commands
	describeFlag := flag.Bool("describe", false, "print the dataset's geometry, coverage and variables")
	depthsFlag := flag.Bool("depths", false, "print the distinct depths of a profile dataset")
	constraintVarFlag := flag.String("constraint-var", "", "variable for an ERDDAP platform constraint (defaults to the dataset's platform variable)")
	constraintValueFlag := flag.StringArray("constraint-value", nil, "value to include in the constraint (repeatable)")
	plugGapsFlag := flag.Bool("plug-gaps", false, "insert missing-value rows into time gaps and write CSV to stdout")
	serveFlag := flag.Bool("serve", false, "run the HTTP API")

	// Gap filling options
	timeColumnFlag := flag.String("time-column", dataset.DefaultTimeColumn, "name of the time column")
	idColumnFlag := flag.String("id-column", "", "name of the entity column (defaults to the dataset's platform variable)")
	keepFlag := flag.StringSlice("keep", nil, "columns copied into inserted rows")
	nStdFlag := flag.Float64("n-std", 3, "gap threshold in standard deviations of the time spacing")
	queryFlag := flag.String("query", "", "ERDDAP query selecting the rows to fill, e.g. 'ID,time,QS&ID=\"A\"'")
	inputFlag := flag.String("input", "", "read rows from this CSV file instead of the ERDDAP server")

	// Server options
	listenAddrFlag := flag.String("listen-addr", ":8080", "HTTP listen address (or set ERDDAP_INFO_LISTEN_ADDR env var)")
	cacheTTLFlag := flag.Duration("cache-ttl", 10*time.Minute, "how long loaded datasets are cached (or set ERDDAP_INFO_CACHE_TTL env var)")
	rpsFlag := flag.Float64("requests-per-second", 0, "per-client request limit (or set ERDDAP_INFO_REQUESTS_PER_SECOND env var)")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	log := logger.NewWithOptions(logger.Options{Verbose: *verboseFlag, JSON: *jsonLogsFlag, Writer: os.Stderr})

	if env := os.Getenv("ERDDAP_INFO_LISTEN_ADDR"); env != "" {
		*listenAddrFlag = env
	}
	if env := os.Getenv("ERDDAP_INFO_CACHE_TTL"); env != "" {
		d, err := time.ParseDuration(env)
		if err != nil {
			return fmt.Errorf("invalid ERDDAP_INFO_CACHE_TTL: %w", err)
		}
		*cacheTTLFlag = d
	}
	if env := os.Getenv("ERDDAP_INFO_REQUESTS_PER_SECOND"); env != "" {
		v, err := strconv.ParseFloat(env, 64)
		if err != nil {
			return fmt.Errorf("invalid ERDDAP_INFO_REQUESTS_PER_SECOND: %w", err)
		}
		*rpsFlag = v
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: os.Getenv("SENTRY_ENVIRONMENT"),
			Release:     version,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		log.Info("sentry enabled", "environment", os.Getenv("SENTRY_ENVIRONMENT"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := erddap.NewClient(erddap.Config{
		Logger:            log,
		HTTPClient:        &http.Client{Timeout: *timeoutFlag},
		UserAgent:         "erddap-info/" + version,
		RequestsPerSecond: *upstreamRPSFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create erddap client: %w", err)
	}

	if *serveFlag {
		srv, err := server.New(server.Config{
			Logger:            log,
			Fetcher:           client,
			ListenAddr:        *listenAddrFlag,
			ShutdownTimeout:   *shutdownTimeoutFlag,
			CacheTTL:          *cacheTTLFlag,
			RequestsPerSecond: *rpsFlag,
			VersionInfo:       server.VersionInfo{Version: version, Commit: commit, Date: date},
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		return srv.Run(ctx)
	}

	if *plugGapsFlag && *inputFlag != "" {
		return plugGapsFromFile(ctx, *inputFlag, gapfill.Options{
			TimeColumn:       *timeColumnFlag,
			EntityColumn:     *idColumnFlag,
			Keep:             *keepFlag,
			StdDevMultiplier: *nStdFlag,
		}, log)
	}

	if *urlFlag == "" {
		flag.Usage()
		return errors.New("--url is required")
	}

	ds, err := dataset.Load(ctx, client, *urlFlag)
	if err != nil {
		return err
	}

	switch {
	case *describeFlag:
		summary, err := ds.Summary()
		if err != nil {
			return err
		}
		renderSummary(os.Stdout, summary)
		return nil

	case *depthsFlag:
		depths, err := ds.Depths(ctx)
		if err != nil {
			return err
		}
		z, _ := ds.Geometry.VerticalVariable()
		renderDepths(os.Stdout, z, depths)
		return nil

	case flag.CommandLine.Changed("constraint-value"):
		c := ds.PlatformConstraint(*constraintValueFlag)
		if *constraintVarFlag != "" {
			c = constraint.Build(*constraintVarFlag, *constraintValueFlag)
		}
		fmt.Fprintln(os.Stdout, c.Expression)
		return nil

	case *plugGapsFlag:
		if *queryFlag == "" {
			return errors.New("--query is required for --plug-gaps without --input")
		}
		res, err := ds.PlugGaps(ctx, *queryFlag, gapfill.Options{
			TimeColumn:       *timeColumnFlag,
			EntityColumn:     *idColumnFlag,
			Keep:             *keepFlag,
			StdDevMultiplier: *nStdFlag,
		})
		if err != nil {
			return err
		}
		log.Info("filled gaps", "rows", res.Frame.Len(), "inserted", res.Inserted)
		return gapfill.WriteCSV(os.Stdout, res.Frame)

	default:
		summary, err := ds.Summary()
		if err != nil {
			return err
		}
		renderOverview(os.Stdout, summary)
		return nil
	}
}

func plugGapsFromFile(ctx context.Context, path string, opts gapfill.Options, log *slog.Logger) error {
	if opts.EntityColumn == "" {
		return errors.New("--id-column is required with --input")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	frame, err := gapfill.ReadCSV(f, opts.TimeColumn)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	res, err := dataset.Fill(ctx, frame, opts)
	if err != nil {
		return err
	}
	log.Info("filled gaps", "input", path, "rows", res.Frame.Len(), "inserted", res.Inserted)
	return gapfill.WriteCSV(os.Stdout, res.Frame)
}
