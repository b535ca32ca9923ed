package lmfdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Source backed by a local SQLite mirror of the newform tables.
type SQLite struct {
	db     *sql.DB
	dbPath string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &SQLite{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.dbPath
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS mf_newforms (
		label TEXT PRIMARY KEY,
		level INTEGER NOT NULL,
		weight INTEGER NOT NULL,
		dim INTEGER NOT NULL,
		char_order INTEGER NOT NULL,
		field_poly TEXT,
		hecke_ring_power_basis INTEGER NOT NULL DEFAULT 0,
		hecke_ring_numerators TEXT,
		hecke_ring_denominators TEXT,
		hecke_ring_cyclotomic_generator INTEGER NOT NULL DEFAULT 0,
		hecke_ring_character_values TEXT,
		an TEXT,
		ap TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_newforms_level_weight ON mf_newforms(level, weight);

	CREATE TABLE IF NOT EXISTS mf_hecke_nf (
		label TEXT PRIMARY KEY,
		an TEXT,
		ap TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Import upserts fixtures into both tables in one transaction.
func (s *SQLite) Import(ctx context.Context, fixtures []Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	formStmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO mf_newforms (
		label, level, weight, dim, char_order, field_poly,
		hecke_ring_power_basis, hecke_ring_numerators, hecke_ring_denominators,
		hecke_ring_cyclotomic_generator, hecke_ring_character_values, an, ap
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer formStmt.Close()
	extStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO mf_hecke_nf (label, an, ap) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer extStmt.Close()

	for _, f := range fixtures {
		cols, err := encodeColumns(f.FieldPoly, f.Numerators, f.Denominators, f.CharacterValues, f.AN, f.AP)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.Label, err)
		}
		if _, err := formStmt.ExecContext(ctx,
			f.Label, f.Level, f.Weight, f.Dim, f.CharOrder, cols[0],
			f.PowerBasis, cols[1], cols[2], f.CyclotomicGen, cols[3], cols[4], cols[5],
		); err != nil {
			return fmt.Errorf("insert %s: %w", f.Label, err)
		}
		if f.Extended == nil {
			continue
		}
		ext, err := encodeColumns(f.Extended.AN, f.Extended.AP)
		if err != nil {
			return fmt.Errorf("encode extended %s: %w", f.Label, err)
		}
		if _, err := extStmt.ExecContext(ctx, f.Label, ext[0], ext[1]); err != nil {
			return fmt.Errorf("insert extended %s: %w", f.Label, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) FormsBy(ctx context.Context, level, weight int) ([]NewformStub, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT label, level, weight, dim, char_order, field_poly,
		hecke_ring_power_basis, hecke_ring_numerators, hecke_ring_denominators,
		hecke_ring_cyclotomic_generator, hecke_ring_character_values, an, ap
	FROM mf_newforms WHERE level = ? AND weight = ? ORDER BY label`, level, weight)
	if err != nil {
		return nil, fmt.Errorf("query newforms %d.%d: %w", level, weight, err)
	}
	defer rows.Close()

	var out []NewformStub
	for rows.Next() {
		var (
			st                                 NewformStub
			fieldPoly, nums, dens, chi, an, ap sql.NullString
		)
		if err := rows.Scan(&st.Label, &st.Level, &st.Weight, &st.Dim, &st.CharOrder, &fieldPoly,
			&st.PowerBasis, &nums, &dens, &st.CyclotomicGen, &chi, &an, &ap); err != nil {
			return nil, err
		}
		if err := decodeColumns(
			column{fieldPoly, &st.FieldPoly},
			column{nums, &st.Numerators},
			column{dens, &st.Denominators},
			column{chi, &st.CharacterValues},
			column{an, &st.AN},
			column{ap, &st.AP},
		); err != nil {
			return nil, fmt.Errorf("decode %s: %w", st.Label, err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLite) ExtendedCoefficients(ctx context.Context, label string) (Coefficients, error) {
	var an, ap sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT an, ap FROM mf_hecke_nf WHERE label = ?`, label).Scan(&an, &ap)
	if errors.Is(err, sql.ErrNoRows) {
		return Coefficients{}, fmt.Errorf("%w: extended coefficients for %s", ErrNotFound, label)
	}
	if err != nil {
		return Coefficients{}, err
	}
	var c Coefficients
	if err := decodeColumns(column{an, &c.AN}, column{ap, &c.AP}); err != nil {
		return Coefficients{}, fmt.Errorf("decode %s: %w", label, err)
	}
	return c, nil
}

type column struct {
	raw sql.NullString
	dst any
}

// decodeColumns unmarshals JSON text columns; NULL leaves the target nil.
func decodeColumns(cols ...column) error {
	for _, c := range cols {
		if !c.raw.Valid || c.raw.String == "" || c.raw.String == "null" {
			continue
		}
		if err := json.Unmarshal([]byte(c.raw.String), c.dst); err != nil {
			return err
		}
	}
	return nil
}

// encodeColumns marshals values to JSON text; nil slices become NULL.
func encodeColumns(vals ...any) ([]sql.NullString, error) {
	out := make([]sql.NullString, len(vals))
	for i, v := range vals {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if string(data) == "null" {
			continue
		}
		out[i] = sql.NullString{String: string(data), Valid: true}
	}
	return out, nil
}
