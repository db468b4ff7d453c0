package core

import (
	"errors"
	"strings"
	"time"
)

const (
	TypeBuyer    TransactionType = "buyer"
	TypeSeller   TransactionType = "seller"
	TypeTenant   TransactionType = "tenant"
	TypeLandlord TransactionType = "landlord"
)

const (
	StatusActive  TransactionStatus = "active"
	StatusPending TransactionStatus = "pending"
	StatusClosed  TransactionStatus = "closed"
)

const (
	FeeUnitUSD     FeeUnit = "usd"
	FeeUnitPercent FeeUnit = "percent"

	FeeBasisPreSplit  FeeBasis = "pre_split"
	FeeBasisPostSplit FeeBasis = "post_split"
)

type (
	TransactionType   string
	TransactionStatus string
	FeeUnit           string
	FeeBasis          string

	// FeeRow is one entry of the repeatable commission-fee list. Exactly one
	// of AmountCents/Percent is set, matching Unit; nil means unset, which is
	// distinct from zero. ID is assigned client-side to keep list rendering
	// stable before the row is ever persisted.
	FeeRow struct {
		ID          string   `json:"id,omitempty"`
		Label       string   `json:"label"`
		Unit        FeeUnit  `json:"unit"`
		Basis       FeeBasis `json:"basis"`
		AmountCents *int64   `json:"amount_cents,omitempty"`
		Percent     *float64 `json:"percent,omitempty"`
	}

	// Transaction is a persisted deal record scoped to one user. Optional
	// monetary and percentage columns use pointers so "never entered" survives
	// the round trip through storage.
	Transaction struct {
		ID               string
		UserID           string
		Type             TransactionType
		Status           TransactionStatus
		ClientName       string
		PropertyAddress  string
		City             string
		State            string
		Zip              string
		PropertyType     string
		ListPriceCents   *int64
		BuyerBudgetCents *int64
		ListingDate      string // ISO yyyy-mm-dd, empty when unset
		ExpirationDate   string
		AgreementStart   string
		AgreementEnd     string
		ListingAgentPct  *float64
		BuyerAgentPct    *float64
		BrokerSplitPct   *float64
		GCICents         *int64
		LeadSource       string
		Currency         string
		Fees             []FeeRow
		Version          int64
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}
)

// Payload is the flat, persistence-ready object produced from validated form
// state. Keys are a stable subset of the Transaction column names; values are
// already converted (integer cents, ISO date strings, fee rows).
type Payload map[string]any

var (
	ErrEmptyFeeLabel    = errors.New("fee label cannot be empty")
	ErrInvalidFeeUnit   = errors.New("invalid fee unit")
	ErrInvalidFeeBasis  = errors.New("invalid fee basis")
	ErrFeeAmountMissing = errors.New("fee amount required for its unit")
	ErrFeeAmountDual    = errors.New("fee carries both usd and percent amounts")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrPercentRange     = errors.New("percent must be between 0 and 100")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidStatus    = errors.New("invalid transaction status")
	ErrInvalidDate      = errors.New("invalid date, expected yyyy-mm-dd")
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeBuyer, TypeSeller, TypeTenant, TypeLandlord:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusClosed:
		return true
	}
	return false
}

// Validate enforces the fee-row invariants: non-empty label, known unit and
// basis, and exactly one amount field populated, matching the unit.
func (f FeeRow) Validate() error {
	if strings.TrimSpace(f.Label) == "" {
		return ErrEmptyFeeLabel
	}
	switch f.Unit {
	case FeeUnitUSD, FeeUnitPercent:
	default:
		return ErrInvalidFeeUnit
	}
	switch f.Basis {
	case FeeBasisPreSplit, FeeBasisPostSplit:
	default:
		return ErrInvalidFeeBasis
	}
	if f.AmountCents != nil && f.Percent != nil {
		return ErrFeeAmountDual
	}
	switch f.Unit {
	case FeeUnitUSD:
		if f.AmountCents == nil {
			return ErrFeeAmountMissing
		}
		if *f.AmountCents < 0 {
			return ErrNegativeAmount
		}
	case FeeUnitPercent:
		if f.Percent == nil {
			return ErrFeeAmountMissing
		}
		if *f.Percent < 0 || *f.Percent > 100 {
			return ErrPercentRange
		}
	}
	return nil
}

// Validate checks the persisted row shape. Field-level form validation runs
// earlier in the wizard; this is the last line of defense before storage.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if strings.TrimSpace(t.ClientName) == "" {
		return errors.New("client name cannot be empty")
	}
	for _, d := range []string{t.ListingDate, t.ExpirationDate, t.AgreementStart, t.AgreementEnd} {
		if d == "" {
			continue
		}
		if !IsISODate(d) {
			return ErrInvalidDate
		}
	}
	for _, p := range []*float64{t.ListingAgentPct, t.BuyerAgentPct, t.BrokerSplitPct} {
		if p != nil && (*p < 0 || *p > 100) {
			return ErrPercentRange
		}
	}
	for _, c := range []*int64{t.ListPriceCents, t.BuyerBudgetCents} {
		if c != nil && *c < 0 {
			return ErrNegativeAmount
		}
	}
	for _, f := range t.Fees {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsISODate reports whether s is a timezone-naive yyyy-mm-dd date.
func IsISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func Int64Ptr(v int64) *int64       { return &v }
func Float64Ptr(v float64) *float64 { return &v }
