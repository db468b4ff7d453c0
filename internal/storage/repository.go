package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"dealtrack/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a transaction does not exist or belongs to a
// different user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("transaction not found")

const transactionColumns = `id, user_id, type, status, client_name, currency,
	buyer_budget, agreement_start_date, agreement_end_date, buyer_agent_percentage,
	property_type, property_address, city, zip, state,
	list_price, listing_date, expiration_date, listing_agent_percentage,
	broker_split_percentage, lead_source, gci, details, version, created_at, updated_at`

const prefixedTransactionColumns = `t.id, t.user_id, t.type, t.status, t.client_name, t.currency,
	t.buyer_budget, t.agreement_start_date, t.agreement_end_date, t.buyer_agent_percentage,
	t.property_type, t.property_address, t.city, t.zip, t.state,
	t.list_price, t.listing_date, t.expiration_date, t.listing_agent_percentage,
	t.broker_split_percentage, t.lead_source, t.gci, t.details, t.version, t.created_at, t.updated_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Create inserts a new transaction built from a submitted wizard payload.
func (r *SQLiteRepository) Create(ctx context.Context, userID string, p core.Payload) (core.Transaction, error) {
	txn := transactionFromPayload(userID, p)
	txn.ID = uuid.NewString()
	txn.Version = 1
	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	txn.GCICents = core.GrossCommissionCents(txn)

	if err := txn.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	details, err := json.Marshal(txn.Fees)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("marshal fees: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, string(txn.Type), string(txn.Status), txn.ClientName, txn.Currency,
		nullInt64(txn.BuyerBudgetCents), nullString(txn.AgreementStart), nullString(txn.AgreementEnd), nullFloat64(txn.BuyerAgentPct),
		nullString(txn.PropertyType), nullString(txn.PropertyAddress), nullString(txn.City), nullString(txn.Zip), nullString(txn.State),
		nullInt64(txn.ListPriceCents), nullString(txn.ListingDate), nullString(txn.ExpirationDate), nullFloat64(txn.ListingAgentPct),
		nullFloat64(txn.BrokerSplitPct), nullString(txn.LeadSource), nullInt64(txn.GCICents), string(details),
		txn.Version, txn.CreatedAt.Format(time.RFC3339Nano), txn.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", txn.ID,
		"type", txn.Type,
		"status", txn.Status,
		"client_name", txn.ClientName)

	return txn, nil
}

// Update replaces a transaction's payload-backed columns. The wizard always
// submits the full payload, so this is a whole-row replace that preserves
// identity, bumps the version, and recomputes the GCI.
func (r *SQLiteRepository) Update(ctx context.Context, userID, id string, p core.Payload) (core.Transaction, error) {
	existing, err := r.Get(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}

	txn := transactionFromPayload(userID, p)
	txn.ID = existing.ID
	txn.Version = existing.Version + 1
	txn.CreatedAt = existing.CreatedAt
	txn.UpdatedAt = time.Now().UTC()
	txn.GCICents = core.GrossCommissionCents(txn)

	if err := txn.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	details, err := json.Marshal(txn.Fees)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("marshal fees: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			type = ?, status = ?, client_name = ?, currency = ?,
			buyer_budget = ?, agreement_start_date = ?, agreement_end_date = ?, buyer_agent_percentage = ?,
			property_type = ?, property_address = ?, city = ?, zip = ?, state = ?,
			list_price = ?, listing_date = ?, expiration_date = ?, listing_agent_percentage = ?,
			broker_split_percentage = ?, lead_source = ?, gci = ?, details = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(txn.Type), string(txn.Status), txn.ClientName, txn.Currency,
		nullInt64(txn.BuyerBudgetCents), nullString(txn.AgreementStart), nullString(txn.AgreementEnd), nullFloat64(txn.BuyerAgentPct),
		nullString(txn.PropertyType), nullString(txn.PropertyAddress), nullString(txn.City), nullString(txn.Zip), nullString(txn.State),
		nullInt64(txn.ListPriceCents), nullString(txn.ListingDate), nullString(txn.ExpirationDate), nullFloat64(txn.ListingAgentPct),
		nullFloat64(txn.BrokerSplitPct), nullString(txn.LeadSource), nullInt64(txn.GCICents), string(details),
		txn.Version, txn.UpdatedAt.Format(time.RFC3339Nano),
		id, userID,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, ErrNotFound
	}

	return txn, nil
}

// Get fetches one transaction scoped to its owner.
func (r *SQLiteRepository) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

// GetByID fetches a transaction regardless of owner. Reserved for the export
// worker, which processes change messages without a user in scope.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// List returns the user's transactions, newest first. An empty status means
// no filter.
func (r *SQLiteRepository) List(ctx context.Context, userID string, status core.TransactionStatus) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

// Delete removes a transaction scoped to its owner.
func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// MarkExported records that a transaction version reached the report sink.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string, version int64, reportRef string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_state (transaction_id, exported_version, report_ref, exported_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			exported_version = excluded.exported_version,
			report_ref = excluded.report_ref,
			exported_at = excluded.exported_at`,
		id, version, reportRef, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// ListUnexportedClosed returns closed transactions whose current version has
// not reached the report sink. Backup path for lost change messages.
func (r *SQLiteRepository) ListUnexportedClosed(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixedTransactionColumns+`
		FROM transactions t
		LEFT JOIN export_state es ON es.transaction_id = t.id
		WHERE t.status = 'closed'
		  AND (es.transaction_id IS NULL OR es.exported_version < t.version)
		ORDER BY t.updated_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

// IsExported reports whether the given version (or a newer one) was exported.
func (r *SQLiteRepository) IsExported(ctx context.Context, id string, version int64) (bool, error) {
	var exported int64
	err := r.db.QueryRowContext(ctx,
		`SELECT exported_version FROM export_state WHERE transaction_id = ?`, id).Scan(&exported)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read export state: %w", err)
	}
	return exported >= version, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		txn                  core.Transaction
		txnType, txnStatus   string
		buyerBudget          sql.NullInt64
		agreementStart       sql.NullString
		agreementEnd         sql.NullString
		buyerAgentPct        sql.NullFloat64
		propertyType         sql.NullString
		propertyAddress      sql.NullString
		city, zip, state     sql.NullString
		listPrice            sql.NullInt64
		listingDate          sql.NullString
		expirationDate       sql.NullString
		listingAgentPct      sql.NullFloat64
		brokerSplitPct       sql.NullFloat64
		leadSource           sql.NullString
		gci                  sql.NullInt64
		details              string
		createdAt, updatedAt string
	)

	err := row.Scan(
		&txn.ID, &txn.UserID, &txnType, &txnStatus, &txn.ClientName, &txn.Currency,
		&buyerBudget, &agreementStart, &agreementEnd, &buyerAgentPct,
		&propertyType, &propertyAddress, &city, &zip, &state,
		&listPrice, &listingDate, &expirationDate, &listingAgentPct,
		&brokerSplitPct, &leadSource, &gci, &details, &txn.Version, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	txn.Type = core.TransactionType(txnType)
	txn.Status = core.TransactionStatus(txnStatus)
	txn.BuyerBudgetCents = fromNullInt64(buyerBudget)
	txn.AgreementStart = agreementStart.String
	txn.AgreementEnd = agreementEnd.String
	txn.BuyerAgentPct = fromNullFloat64(buyerAgentPct)
	txn.PropertyType = propertyType.String
	txn.PropertyAddress = propertyAddress.String
	txn.City = city.String
	txn.Zip = zip.String
	txn.State = state.String
	txn.ListPriceCents = fromNullInt64(listPrice)
	txn.ListingDate = listingDate.String
	txn.ExpirationDate = expirationDate.String
	txn.ListingAgentPct = fromNullFloat64(listingAgentPct)
	txn.BrokerSplitPct = fromNullFloat64(brokerSplitPct)
	txn.LeadSource = leadSource.String
	txn.GCICents = fromNullInt64(gci)

	if err := json.Unmarshal([]byte(details), &txn.Fees); err != nil {
		return core.Transaction{}, fmt.Errorf("unmarshal fees: %w", err)
	}
	if txn.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	if txn.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return txn, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

/* ---------- Payload mapping ---------- */

// transactionFromPayload maps a flat wizard payload onto a row. Unknown keys
// are ignored; absent keys stay unset.
func transactionFromPayload(userID string, p core.Payload) core.Transaction {
	txn := core.Transaction{
		UserID:          userID,
		Type:            core.TransactionType(payloadString(p, "type")),
		Status:          core.TransactionStatus(payloadString(p, "status")),
		ClientName:      payloadString(p, "client_name"),
		Currency:        payloadString(p, "currency"),
		PropertyType:    payloadString(p, "property_type"),
		PropertyAddress: payloadString(p, "property_address"),
		City:            payloadString(p, "city"),
		Zip:             payloadString(p, "zip"),
		State:           payloadString(p, "state"),
		ListingDate:     payloadString(p, "listing_date"),
		ExpirationDate:  payloadString(p, "expiration_date"),
		AgreementStart:  payloadString(p, "agreement_start_date"),
		AgreementEnd:    payloadString(p, "agreement_end_date"),
		LeadSource:      payloadString(p, "lead_source"),

		BuyerBudgetCents: payloadCents(p, "buyer_budget"),
		ListPriceCents:   payloadCents(p, "list_price"),
		BuyerAgentPct:    payloadPercent(p, "buyer_agent_percentage"),
		ListingAgentPct:  payloadPercent(p, "listing_agent_percentage"),
		BrokerSplitPct:   payloadPercent(p, "broker_split_percentage"),
	}
	if txn.Currency == "" {
		txn.Currency = "USD"
	}
	if fees, ok := p["fees"].([]core.FeeRow); ok {
		txn.Fees = fees
	} else {
		txn.Fees = []core.FeeRow{}
	}
	return txn
}

func payloadString(p core.Payload, key string) string {
	s, _ := p[key].(string)
	return s
}

func payloadCents(p core.Payload, key string) *int64 {
	switch v := p[key].(type) {
	case int64:
		return core.Int64Ptr(v)
	case int:
		return core.Int64Ptr(int64(v))
	}
	return nil
}

func payloadPercent(p core.Payload, key string) *float64 {
	if f, ok := p[key].(float64); ok {
		return core.Float64Ptr(f)
	}
	return nil
}

/* ---------- sql.Null helpers ---------- */

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return core.Int64Ptr(v.Int64)
}

func fromNullFloat64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return core.Float64Ptr(v.Float64)
}
