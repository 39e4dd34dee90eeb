package coinbase

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
)

// Wire bodies sent to the exchange. The json tags are the explicit mapping
// between client field names and the exchange's external names; all field
// translation lives here.
type createReportBody struct {
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Format    string `json:"format"`
	ProductID string `json:"product_id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	Email     string `json:"email,omitempty"`
}

type paymentMethodTransferBody struct {
	Amount          json.Number `json:"amount"`
	Currency        string      `json:"currency"`
	PaymentMethodID string      `json:"payment_method_id"`
}

type coinbaseAccountTransferBody struct {
	Amount            json.Number `json:"amount"`
	Currency          string      `json:"currency"`
	CoinbaseAccountID string      `json:"coinbase_account_id"`
}

type cryptoWithdrawalBody struct {
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	CryptoAddress string      `json:"crypto_address"`
}

// reportResponse represents the raw report object from the exchange.
type reportResponse struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	CreatedAt   string      `json:"created_at"`
	CompletedAt string      `json:"completed_at"`
	ExpiresAt   string      `json:"expires_at"`
	FileURL     string      `json:"file_url"`
	Params      core.Params `json:"params"`
}

// transferResponse represents the raw deposit/withdrawal confirmation from
// the exchange. Amounts arrive as decimal strings.
type transferResponse struct {
	ID              string `json:"id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	PaymentMethodID string `json:"payment_method_id"`
	Fee             string `json:"fee"`
	PayoutAt        string `json:"payout_at"`
}

// accountResponse represents a raw trading account from the exchange.
type accountResponse struct {
	ID             string `json:"id"`
	Currency       string `json:"currency"`
	Balance        string `json:"balance"`
	Available      string `json:"available"`
	Hold           string `json:"hold"`
	ProfileID      string `json:"profile_id"`
	TradingEnabled bool   `json:"trading_enabled"`
}

// paymentMethodResponse represents a raw payment method from the exchange.
type paymentMethodResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	PrimaryBuy  bool   `json:"primary_buy"`
	PrimarySell bool   `json:"primary_sell"`
}

// coinbaseAccountResponse represents a raw Coinbase wallet from the exchange.
type coinbaseAccountResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Type     string `json:"type"`
	Primary  bool   `json:"primary"`
	Active   bool   `json:"active"`
}

// timeResponse represents the raw server time from the exchange.
type timeResponse struct {
	ISO   string  `json:"iso"`
	Epoch float64 `json:"epoch"`
}

func normalizeReport(raw *reportResponse) *core.Report {
	return &core.Report{
		ID:          raw.ID,
		Type:        core.ReportType(raw.Type),
		Status:      core.ReportStatus(raw.Status),
		CreatedAt:   parseTime(raw.CreatedAt),
		CompletedAt: parseTime(raw.CompletedAt),
		ExpiresAt:   parseTime(raw.ExpiresAt),
		FileURL:     raw.FileURL,
		Params:      raw.Params,
	}
}

func normalizeTransfer(raw *transferResponse) *core.Transfer {
	return &core.Transfer{
		ID:              raw.ID,
		Amount:          parseDecimal(raw.Amount),
		Currency:        raw.Currency,
		PaymentMethodID: raw.PaymentMethodID,
		Fee:             parseDecimal(raw.Fee),
		PayoutAt:        parseTime(raw.PayoutAt),
	}
}

func normalizeAccount(raw *accountResponse) *core.Account {
	return &core.Account{
		ID:             raw.ID,
		Currency:       raw.Currency,
		Balance:        parseDecimal(raw.Balance),
		Available:      parseDecimal(raw.Available),
		Hold:           parseDecimal(raw.Hold),
		ProfileID:      raw.ProfileID,
		TradingEnabled: raw.TradingEnabled,
	}
}

func normalizeAccounts(raw []accountResponse) []core.Account {
	accounts := make([]core.Account, len(raw))
	for i := range raw {
		accounts[i] = *normalizeAccount(&raw[i])
	}
	return accounts
}

func normalizePaymentMethods(raw []paymentMethodResponse) []core.PaymentMethod {
	methods := make([]core.PaymentMethod, len(raw))
	for i, m := range raw {
		methods[i] = core.PaymentMethod{
			ID:          m.ID,
			Type:        m.Type,
			Name:        m.Name,
			Currency:    m.Currency,
			PrimaryBuy:  m.PrimaryBuy,
			PrimarySell: m.PrimarySell,
		}
	}
	return methods
}

func normalizeCoinbaseAccounts(raw []coinbaseAccountResponse) []core.CoinbaseAccount {
	accounts := make([]core.CoinbaseAccount, len(raw))
	for i, a := range raw {
		accounts[i] = core.CoinbaseAccount{
			ID:       a.ID,
			Name:     a.Name,
			Balance:  parseDecimal(a.Balance),
			Currency: a.Currency,
			Type:     a.Type,
			Primary:  a.Primary,
			Active:   a.Active,
		}
	}
	return accounts
}

func normalizeServerTime(raw *timeResponse) *core.ServerTime {
	return &core.ServerTime{
		ISO:   parseTime(raw.ISO),
		Epoch: raw.Epoch,
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDecimal(s string) apd.Decimal {
	if s == "" {
		return apd.Decimal{}
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return apd.Decimal{}
	}
	return *d
}
