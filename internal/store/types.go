// Package store defines the record store contract consumed by the match
// strategies, plus the SQLite reference implementation the CLI runs against.
//
// The matching core only reads records. Creation, mutation, and deletion of
// customer rows belong to whoever owns the store; this package's insert
// helpers exist for the CLI seeder and for test fixtures.
package store

import (
	"context"
	"fmt"
)

// RecordID is the stable integer identity of a customer record.
// The matching core uses it only for equality and deduplication.
type RecordID int64

// Field identifies a (table, column) pair addressable in store lookups and
// eligible for fuzzy indexing.
type Field struct {
	Table  string
	Column string
}

// String returns the canonical "table.column" form.
func (f Field) String() string {
	return f.Table + "." + f.Column
}

// Tables known to the store. Child tables resolve to the owning customer.
const (
	TableCustomer    = "customer"
	TableContact     = "contact"
	TableLocation    = "location"
	TablePayment     = "payment"
	TableInvoiceDest = "invoice_dest"
	TableAccount     = "account"
	TableDomain      = "domain"
)

// Customer columns searched by the strategies.
const (
	ColFirst       = "first"
	ColLast        = "last"
	ColCompany     = "company"
	ColAltCompany  = "alt_company"
	ColDayPhone    = "day_phone"
	ColNightPhone  = "night_phone"
	ColMobilePhone = "mobile_phone"
	ColFaxPhone    = "fax_phone"
	ColPhoneDigits = "phone_digits"
	ColExternalID  = "external_id"
	ColEmail       = "email"
	ColAddress1    = "address1"
	ColAddress     = "address"
)

// PaymentFamilyCard is the payment family the card strategy is restricted to.
const PaymentFamilyCard = "card"

// Qualifier is an opaque caller-supplied predicate (tenant/agent scoping)
// ANDed into every lookup. The matching core never interprets it.
type Qualifier interface {
	// Clause returns a SQL fragment referencing the customer table plus
	// its bind arguments.
	Clause() (string, []any)
}

// AgentQualifier scopes lookups to a single agent partition.
type AgentQualifier struct {
	AgentID int64
}

// Clause implements Qualifier.
func (q AgentQualifier) Clause() (string, []any) {
	return "customer.agent_id = ?", []any{q.AgentID}
}

// And combines qualifiers; nil members are skipped.
func And(quals ...Qualifier) Qualifier {
	var kept []Qualifier
	for _, q := range quals {
		if q != nil {
			kept = append(kept, q)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return andQualifier(kept)
}

type andQualifier []Qualifier

func (qs andQualifier) Clause() (string, []any) {
	clause := ""
	var args []any
	for i, q := range qs {
		c, a := q.Clause()
		if i > 0 {
			clause += " AND "
		}
		clause += "(" + c + ")"
		args = append(args, a...)
	}
	return clause, args
}

// RecordStore is the lookup surface consumed by the match strategies.
// Implementations must scope every lookup by the supplied qualifier (nil
// means unqualified) and resolve child-table matches to the owning customer.
type RecordStore interface {
	// FindExact returns owners whose field equals value, case-insensitive.
	FindExact(ctx context.Context, field Field, value string, qual Qualifier) ([]RecordID, error)

	// FindPrefix returns owners whose field starts with prefix,
	// case-insensitive. LIKE metacharacters in prefix are escaped.
	FindPrefix(ctx context.Context, field Field, prefix string, qual Qualifier) ([]RecordID, error)

	// FindSubstring returns owners whose field contains needle,
	// case-insensitive. LIKE metacharacters in needle are escaped.
	FindSubstring(ctx context.Context, field Field, needle string, qual Qualifier) ([]RecordID, error)

	// FindNamePair matches (first, last) as a conjoined pair on the given
	// table (customer or contact). When substring is true both components
	// match as case-insensitive contains, otherwise as equality.
	FindNamePair(ctx context.Context, table, first, last string, substring bool, qual Qualifier) ([]RecordID, error)

	// FindStructured matches company, last, and first simultaneously with
	// case-insensitive equality.
	FindStructured(ctx context.Context, company, last, first string, qual Qualifier) ([]RecordID, error)

	// FindIdentifier matches the primary identifier column.
	FindIdentifier(ctx context.Context, id int64, qual Qualifier) ([]RecordID, error)

	// FindAccountEmail matches service accounts whose username equals
	// localPart and whose associated domain record equals domain.
	FindAccountEmail(ctx context.Context, localPart, domain string, qual Qualifier) ([]RecordID, error)

	// FindCard matches payment methods of card family whose raw identifier
	// matches likePattern (single-character wildcards preserved) or whose
	// precomputed mask equals mask.
	FindCard(ctx context.Context, likePattern, mask string, qual Qualifier) ([]RecordID, error)

	// ScanField streams every non-empty value of field with its owner.
	// Used only by fuzzy corpus rebuilds; no qualifier applies.
	ScanField(ctx context.Context, field Field, fn func(owner RecordID, value string) error) error
}

// Customer is a record row for seeding and fixtures.
type Customer struct {
	ID          RecordID
	AgentID     int64
	ExternalID  string
	First       string
	Last        string
	Company     string
	AltCompany  string
	DayPhone    string
	NightPhone  string
	MobilePhone string
	FaxPhone    string
	PhoneDigits string
}

// Contact is a linked contact row.
type Contact struct {
	CustomerID RecordID
	First      string
	Last       string
	Email      string
}

// Location is a linked service location row.
type Location struct {
	CustomerID RecordID
	Address1   string
}

// Payment is a linked payment method row.
type Payment struct {
	CustomerID RecordID
	Family     string
	RawInfo    string
	Mask       string
}

// Account is a linked service account row; Domain names its mail domain.
type Account struct {
	CustomerID RecordID
	Username   string
	Domain     string
}

// searchable maps each addressable table to its join against customer and
// the whitelisted columns. Field addressing goes through this table so no
// caller-supplied string ever reaches SQL identifiers.
var searchable = map[string]struct {
	from    string
	columns map[string]bool
}{
	TableCustomer: {
		from: "customer",
		columns: map[string]bool{
			ColFirst: true, ColLast: true, ColCompany: true, ColAltCompany: true,
			ColDayPhone: true, ColNightPhone: true, ColMobilePhone: true,
			ColFaxPhone: true, ColPhoneDigits: true, ColExternalID: true,
		},
	},
	TableContact: {
		from:    "customer JOIN contact ON contact.customer_id = customer.id",
		columns: map[string]bool{ColFirst: true, ColLast: true, ColEmail: true},
	},
	TableLocation: {
		from:    "customer JOIN location ON location.customer_id = customer.id",
		columns: map[string]bool{ColAddress1: true},
	},
	TableInvoiceDest: {
		from:    "customer JOIN invoice_dest ON invoice_dest.customer_id = customer.id",
		columns: map[string]bool{ColAddress: true},
	},
}

// resolveField validates a field against the whitelist and returns its FROM
// clause and qualified column reference.
func resolveField(f Field) (from, column string, err error) {
	t, ok := searchable[f.Table]
	if !ok {
		return "", "", fmt.Errorf("unknown table %q", f.Table)
	}
	if !t.columns[f.Column] {
		return "", "", fmt.Errorf("unknown column %q on table %q", f.Column, f.Table)
	}
	return t.from, f.Table + "." + f.Column, nil
}
