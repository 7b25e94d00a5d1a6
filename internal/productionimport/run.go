package productionimport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Path        string
	DatabaseURL string
	DryRun      bool

	// Replace removes older rows that share (commune, produit, annee,
	// filiere) with an imported row.
	Replace bool

	// AdvisoryLock serialises concurrent imports when non-zero.
	AdvisoryLock int64
}

type Result struct {
	BatchID  uuid.UUID
	Rows     int
	Inserted int
	Replaced int64
}

// ErrUnknownCommunes is returned when the file names communes that have no
// row to copy geometry and hierarchy from.
var ErrUnknownCommunes = errors.New("unknown communes")

const insertFromTemplate = `
INSERT INTO productions (adm3_pcode, adm3_name1, adm2_name1, adm1_name1, geom, filiere, produit, annee, tonnage)
SELECT adm3_pcode, adm3_name1, adm2_name1, adm1_name1, geom, $1, $2, $3, $4
FROM productions
WHERE adm3_name1 = $5
LIMIT 1
RETURNING id`

const deleteExisting = `
DELETE FROM productions
WHERE adm3_name1 = $1 AND produit = $2 AND annee = $3 AND filiere = $4 AND id <> $5`

func Run(ctx context.Context, cfg Config, log *logrus.Entry) (Result, error) {
	res := Result{BatchID: uuid.New()}
	log = log.WithField("batch", res.BatchID.String())

	rows, err := Load(cfg.Path)
	if err != nil {
		return res, err
	}
	res.Rows = len(rows)
	log.WithField("rows", len(rows)).WithField("file", cfg.Path).Info("parsed import file")

	if cfg.DryRun {
		log.Info("dry run: nothing written")
		return res, nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return res, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return res, fmt.Errorf("ping db: %w", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	if cfg.AdvisoryLock != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, cfg.AdvisoryLock); err != nil {
			return res, fmt.Errorf("advisory lock: %w", err)
		}
	}

	if missing, err := missingCommunes(ctx, tx, Communes(rows)); err != nil {
		return res, err
	} else if len(missing) > 0 {
		return res, fmt.Errorf("%w: %s", ErrUnknownCommunes, strings.Join(missing, ", "))
	}

	for _, r := range rows {
		var id int64
		err := tx.QueryRowContext(ctx, insertFromTemplate,
			r.Sector, r.Product, r.Year, r.Tonnage, r.Commune,
		).Scan(&id)
		if err != nil {
			return res, fmt.Errorf("row %d: insert: %w", r.Line, err)
		}
		res.Inserted++

		// The new row is inserted first so the commune keeps a template.
		if cfg.Replace {
			out, err := tx.ExecContext(ctx, deleteExisting, r.Commune, r.Product, r.Year, r.Sector, id)
			if err != nil {
				return res, fmt.Errorf("row %d: replace: %w", r.Line, err)
			}
			n, _ := out.RowsAffected()
			res.Replaced += n
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}

	log.WithFields(logrus.Fields{
		"inserted": res.Inserted,
		"replaced": res.Replaced,
	}).Info("import committed")
	return res, nil
}

// missingCommunes returns the names in want that have no production row.
func missingCommunes(ctx context.Context, tx *sql.Tx, want []string) ([]string, error) {
	q, err := tx.QueryContext(ctx,
		`SELECT DISTINCT adm3_name1 FROM productions WHERE adm3_name1 = ANY($1)`,
		pq.Array(want),
	)
	if err != nil {
		return nil, fmt.Errorf("check communes: %w", err)
	}
	defer q.Close()

	found := map[string]bool{}
	for q.Next() {
		var name string
		if err := q.Scan(&name); err != nil {
			return nil, err
		}
		found[name] = true
	}
	if err := q.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, w := range want {
		if !found[w] {
			missing = append(missing, w)
		}
	}
	return missing, nil
}
