package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/bassins/bassins-api/internal/logger"
	"github.com/bassins/bassins-api/internal/productionimport"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")

	var (
		path     = flag.String("file", "", "path to a .csv or .xlsx export (required)")
		dsn      = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
		dryRun   = flag.Bool("dry-run", false, "parse and validate only; no DB writes")
		replace  = flag.Bool("replace", false, "delete older rows with the same commune, produit, annee and filiere")
		advisory = flag.Int64("advisory-lock", 0, "optional Postgres advisory lock key. 0 = disabled")
		level    = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	log := logger.New(os.Getenv("ENVIRONMENT"), *level)

	if *path == "" || (*dsn == "" && !*dryRun) {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := productionimport.Run(ctx, productionimport.Config{
		Path:         *path,
		DatabaseURL:  *dsn,
		DryRun:       *dryRun,
		Replace:      *replace,
		AdvisoryLock: *advisory,
	}, log.Entry)
	if err != nil {
		log.WithError(err).WithField("batch", res.BatchID.String()).Fatal("import failed")
	}
	log.WithField("rows", res.Rows).WithField("inserted", res.Inserted).Info("import done")
}
