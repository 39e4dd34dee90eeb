package core

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// ReportType identifies which report the exchange should generate.
type ReportType string

// Report type constants define the report variants the exchange offers.
const (
	// ReportFills covers executed trades for one product.
	ReportFills ReportType = "fills"
	// ReportAccount covers the ledger of one trading account.
	ReportAccount ReportType = "account"
)

// Valid returns true for a report type the exchange recognizes.
func (t ReportType) Valid() bool {
	return t == ReportFills || t == ReportAccount
}

// ReportFormat selects the file format of a generated report.
type ReportFormat string

// Report format constants. The exchange defaults to PDF when none is given.
const (
	FormatPDF ReportFormat = "pdf"
	FormatCSV ReportFormat = "csv"
)

// Valid returns true for a format the exchange recognizes.
func (f ReportFormat) Valid() bool {
	return f == FormatPDF || f == FormatCSV
}

// ReportStatus is the server-assigned lifecycle state of a report job.
// The exchange reports "pending" or "creating" while the job runs, "ready"
// once the file is available, and "expired" once the download window has
// passed.
type ReportStatus string

// Report status constants as returned by the exchange.
const (
	ReportPending  ReportStatus = "pending"
	ReportCreating ReportStatus = "creating"
	ReportReady    ReportStatus = "ready"
	ReportExpired  ReportStatus = "expired"
)

// InProgress returns true while the exchange is still generating the report.
func (s ReportStatus) InProgress() bool {
	return s == ReportPending || s == ReportCreating
}

// Terminal returns true if the report will not change state again.
func (s ReportStatus) Terminal() bool {
	return s == ReportReady || s == ReportExpired
}

// Report represents a report generation job on the exchange. FileURL is
// populated only once Status is ready; Params echoes the parameters the job
// was created with.
type Report struct {
	// ID is the exchange-assigned report identifier. Callers must store it
	// externally to resume polling across process runs.
	ID string `json:"id"`
	// Type is the report variant that was requested.
	Type ReportType `json:"type"`
	// Status is the current lifecycle state of the job.
	Status ReportStatus `json:"status"`
	// CreatedAt is when the job was submitted.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when generation finished; zero while in progress.
	CompletedAt time.Time `json:"completed_at"`
	// ExpiresAt is when the download link stops working.
	ExpiresAt time.Time `json:"expires_at"`
	// FileURL is the download location, set only when the report is ready.
	FileURL string `json:"file_url"`
	// Params echoes the creation parameters as the exchange recorded them.
	Params Params `json:"params"`
}

// Transfer represents a confirmed movement of funds into or out of the
// trading profile: a deposit or a withdrawal. The exchange populates only the
// fields relevant to the funding source that was used.
type Transfer struct {
	// ID is the exchange-assigned transfer identifier, when provided.
	ID string `json:"id"`
	// Amount is the transferred amount.
	Amount apd.Decimal `json:"amount"`
	// Currency is the currency of the transfer (e.g. "USD").
	Currency string `json:"currency"`
	// PaymentMethodID identifies the payment method, for bank transfers.
	PaymentMethodID string `json:"payment_method_id"`
	// Fee is the fee charged, for crypto withdrawals.
	Fee apd.Decimal `json:"fee"`
	// PayoutAt is when the funds settle, for bank transfers.
	PayoutAt time.Time `json:"payout_at"`
}

// Account represents one trading account (one per currency per profile).
type Account struct {
	// ID is the account identifier, used for account reports and ledgers.
	ID string `json:"id"`
	// Currency is the account's currency.
	Currency string `json:"currency"`
	// Balance is the total funds in the account.
	Balance apd.Decimal `json:"balance"`
	// Available is the balance available for use.
	Available apd.Decimal `json:"available"`
	// Hold is the balance locked by open orders and pending transfers.
	Hold apd.Decimal `json:"hold"`
	// ProfileID identifies the profile the account belongs to.
	ProfileID string `json:"profile_id"`
	// TradingEnabled indicates whether the account can trade.
	TradingEnabled bool `json:"trading_enabled"`
}

// PaymentMethod represents a linked fiat funding source.
type PaymentMethod struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	PrimaryBuy  bool   `json:"primary_buy"`
	PrimarySell bool   `json:"primary_sell"`
}

// CoinbaseAccount represents a linked Coinbase wallet that can fund deposits
// and receive withdrawals.
type CoinbaseAccount struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Currency string      `json:"currency"`
	Type     string      `json:"type"`
	Primary  bool        `json:"primary"`
	Active   bool        `json:"active"`
	Balance  apd.Decimal `json:"balance"`
}

// ServerTime is the exchange's notion of the current time. Useful for
// diagnosing signature timestamp drift.
type ServerTime struct {
	ISO   time.Time `json:"iso"`
	Epoch float64   `json:"epoch"`
}
