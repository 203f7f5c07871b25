package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteStore implements RecordStore on SQLite.
// It is the reference collaborator the CLI runs against and the fixture
// engine for strategy tests; production deployments substitute their own
// RecordStore implementation.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Verify interface implementation at compile time
var _ RecordStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS customer (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id     INTEGER NOT NULL DEFAULT 0,
	external_id  TEXT NOT NULL DEFAULT '',
	first        TEXT NOT NULL DEFAULT '',
	last         TEXT NOT NULL DEFAULT '',
	company      TEXT NOT NULL DEFAULT '',
	alt_company  TEXT NOT NULL DEFAULT '',
	day_phone    TEXT NOT NULL DEFAULT '',
	night_phone  TEXT NOT NULL DEFAULT '',
	mobile_phone TEXT NOT NULL DEFAULT '',
	fax_phone    TEXT NOT NULL DEFAULT '',
	phone_digits TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS contact (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id INTEGER NOT NULL REFERENCES customer(id),
	first       TEXT NOT NULL DEFAULT '',
	last        TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS location (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id INTEGER NOT NULL REFERENCES customer(id),
	address1    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS payment (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id INTEGER NOT NULL REFERENCES customer(id),
	family      TEXT NOT NULL DEFAULT '',
	raw_info    TEXT NOT NULL DEFAULT '',
	mask        TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS invoice_dest (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id INTEGER NOT NULL REFERENCES customer(id),
	address     TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS domain (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS account (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id INTEGER NOT NULL REFERENCES customer(id),
	username    TEXT NOT NULL DEFAULT '',
	domain_id   INTEGER NOT NULL REFERENCES domain(id)
);
CREATE INDEX IF NOT EXISTS idx_customer_last ON customer(last);
CREATE INDEX IF NOT EXISTS idx_customer_company ON customer(company);
CREATE INDEX IF NOT EXISTS idx_customer_phone_digits ON customer(phone_digits);
CREATE INDEX IF NOT EXISTS idx_customer_external_id ON customer(external_id);
CREATE INDEX IF NOT EXISTS idx_contact_customer ON contact(customer_id);
CREATE INDEX IF NOT EXISTS idx_location_customer ON location(customer_id);
CREATE INDEX IF NOT EXISTS idx_payment_customer ON payment(customer_id);
CREATE INDEX IF NOT EXISTS idx_account_username ON account(username);
`

// validateIntegrity checks an existing database file before opening it for
// real use. Returns nil if the file is absent (it will be created).
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteStore opens (or creates) a record store at path.
// An empty path creates an in-memory store for testing.
// WAL mode allows concurrent readers across processes.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := validateIntegrity(path); err != nil {
			return nil, fmt.Errorf("record store at %s: %w", path, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: serializes writes and keeps :memory: databases
	// from silently forking per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if path != "" {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA busy_timeout=5000",
		} {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to set pragma: %w", err)
			}
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	slog.Debug("record_store_opened", slog.String("path", path))
	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// findWhere runs a distinct-owner query against the given FROM clause.
func (s *SQLiteStore) findWhere(ctx context.Context, from, where string, args []any, qual Qualifier) ([]RecordID, error) {
	query := "SELECT DISTINCT customer.id FROM " + from + " WHERE " + where
	if qual != nil {
		clause, qargs := qual.Clause()
		query += " AND (" + clause + ")"
		args = append(args, qargs...)
	}
	query += " ORDER BY customer.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var ids []RecordID
	for rows.Next() {
		var id RecordID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindExact implements RecordStore.
func (s *SQLiteStore) FindExact(ctx context.Context, field Field, value string, qual Qualifier) ([]RecordID, error) {
	from, column, err := resolveField(field)
	if err != nil {
		return nil, err
	}
	return s.findWhere(ctx, from, column+" = ? COLLATE NOCASE", []any{value}, qual)
}

// FindPrefix implements RecordStore.
func (s *SQLiteStore) FindPrefix(ctx context.Context, field Field, prefix string, qual Qualifier) ([]RecordID, error) {
	from, column, err := resolveField(field)
	if err != nil {
		return nil, err
	}
	return s.findWhere(ctx, from, column+` LIKE ? ESCAPE '\'`, []any{escapeLike(prefix) + "%"}, qual)
}

// FindSubstring implements RecordStore.
func (s *SQLiteStore) FindSubstring(ctx context.Context, field Field, needle string, qual Qualifier) ([]RecordID, error) {
	from, column, err := resolveField(field)
	if err != nil {
		return nil, err
	}
	return s.findWhere(ctx, from, column+` LIKE ? ESCAPE '\'`, []any{"%" + escapeLike(needle) + "%"}, qual)
}

// FindNamePair implements RecordStore.
func (s *SQLiteStore) FindNamePair(ctx context.Context, table, first, last string, substring bool, qual Qualifier) ([]RecordID, error) {
	if table != TableCustomer && table != TableContact {
		return nil, fmt.Errorf("name pair not supported on table %q", table)
	}
	from := searchable[table].from
	if substring {
		where := table + `.first LIKE ? ESCAPE '\' AND ` + table + `.last LIKE ? ESCAPE '\'`
		args := []any{"%" + escapeLike(first) + "%", "%" + escapeLike(last) + "%"}
		return s.findWhere(ctx, from, where, args, qual)
	}
	where := table + ".first = ? COLLATE NOCASE AND " + table + ".last = ? COLLATE NOCASE"
	return s.findWhere(ctx, from, where, []any{first, last}, qual)
}

// FindStructured implements RecordStore.
func (s *SQLiteStore) FindStructured(ctx context.Context, company, last, first string, qual Qualifier) ([]RecordID, error) {
	where := "customer.company = ? COLLATE NOCASE AND customer.last = ? COLLATE NOCASE AND customer.first = ? COLLATE NOCASE"
	return s.findWhere(ctx, "customer", where, []any{company, last, first}, qual)
}

// FindIdentifier implements RecordStore.
func (s *SQLiteStore) FindIdentifier(ctx context.Context, id int64, qual Qualifier) ([]RecordID, error) {
	return s.findWhere(ctx, "customer", "customer.id = ?", []any{id}, qual)
}

// FindAccountEmail implements RecordStore.
func (s *SQLiteStore) FindAccountEmail(ctx context.Context, localPart, domain string, qual Qualifier) ([]RecordID, error) {
	from := "customer JOIN account ON account.customer_id = customer.id" +
		" JOIN domain ON domain.id = account.domain_id"
	where := "account.username = ? COLLATE NOCASE AND domain.name = ? COLLATE NOCASE"
	return s.findWhere(ctx, from, where, []any{localPart, domain}, qual)
}

// FindCard implements RecordStore.
// likePattern carries intentional single-character wildcards, so it is not
// escaped; the raw column match and the mask equality are a logical OR.
func (s *SQLiteStore) FindCard(ctx context.Context, likePattern, mask string, qual Qualifier) ([]RecordID, error) {
	from := "customer JOIN payment ON payment.customer_id = customer.id"
	where := "payment.family = ? AND (payment.raw_info LIKE ? OR payment.mask = ?)"
	return s.findWhere(ctx, from, where, []any{PaymentFamilyCard, likePattern, mask}, qual)
}

// ScanField implements RecordStore. Owner is the customer id even for child
// tables; empty values are skipped at the SQL layer.
func (s *SQLiteStore) ScanField(ctx context.Context, field Field, fn func(owner RecordID, value string) error) error {
	from, column, err := resolveField(field)
	if err != nil {
		return err
	}

	query := "SELECT customer.id, " + column + " FROM " + from +
		" WHERE " + column + " <> '' ORDER BY customer.id"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("scan query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner RecordID
		var value string
		if err := rows.Scan(&owner, &value); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		if err := fn(owner, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

// InsertCustomer adds a customer row and returns its identity.
func (s *SQLiteStore) InsertCustomer(ctx context.Context, c Customer) (RecordID, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO customer (agent_id, external_id, first, last, company, alt_company,
			day_phone, night_phone, mobile_phone, fax_phone, phone_digits)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.AgentID, c.ExternalID, c.First, c.Last, c.Company, c.AltCompany,
		c.DayPhone, c.NightPhone, c.MobilePhone, c.FaxPhone, c.PhoneDigits)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return RecordID(id), nil
}

// InsertContact adds a contact row linked to a customer.
func (s *SQLiteStore) InsertContact(ctx context.Context, c Contact) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO contact (customer_id, first, last, email) VALUES (?, ?, ?, ?)",
		c.CustomerID, c.First, c.Last, c.Email)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// InsertLocation adds a service location row linked to a customer.
func (s *SQLiteStore) InsertLocation(ctx context.Context, l Location) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO location (customer_id, address1) VALUES (?, ?)",
		l.CustomerID, l.Address1)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// InsertPayment adds a payment method row linked to a customer.
func (s *SQLiteStore) InsertPayment(ctx context.Context, p Payment) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO payment (customer_id, family, raw_info, mask) VALUES (?, ?, ?, ?)",
		p.CustomerID, p.Family, p.RawInfo, p.Mask)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// InsertInvoiceDest adds an invoice destination address for a customer.
func (s *SQLiteStore) InsertInvoiceDest(ctx context.Context, customerID RecordID, address string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO invoice_dest (customer_id, address) VALUES (?, ?)",
		customerID, address)
	if err != nil {
		return fmt.Errorf("insert invoice_dest: %w", err)
	}
	return nil
}

// InsertAccount adds a service account, creating its domain row on demand.
func (s *SQLiteStore) InsertAccount(ctx context.Context, a Account) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO domain (name) VALUES (?)", a.Domain)
	if err != nil {
		return fmt.Errorf("insert domain: %w", err)
	}

	var domainID int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT id FROM domain WHERE name = ?", a.Domain).Scan(&domainID); err != nil {
		return fmt.Errorf("resolve domain: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO account (customer_id, username, domain_id) VALUES (?, ?, ?)",
		a.CustomerID, a.Username, domainID)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}
