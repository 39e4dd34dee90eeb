package coinbase

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
)

func validReportParams() core.Params {
	return core.Params{
		"type":       "fills",
		"product_id": "BTC-USD",
		"start_date": "2025-07-01T00:00:00.000Z",
		"end_date":   "2025-08-01T00:00:00.000Z",
	}
}

func TestProtocolIdentity(t *testing.T) {
	p := NewProtocol()

	assert.Equal(t, "coinbase", p.Name())
	assert.Equal(t, ProductionURL, p.BaseURL(false))
	assert.Equal(t, SandboxURL, p.BaseURL(true))
	assert.Len(t, p.SupportedOperations(), 12)
}

func TestBuildRequestUnsupportedOperation(t *testing.T) {
	p := NewProtocol()
	_, err := p.BuildRequest(core.Operation(99), nil)
	assert.Error(t, err)
}

func TestBuildCreateReportRequest(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(core.OpCreateReport, validReportParams())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "reports", req.Path)
	assert.True(t, req.RequireAuth)

	body, err := sonic.Marshal(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "fills",
		"start_date": "2025-07-01T00:00:00.000Z",
		"end_date": "2025-08-01T00:00:00.000Z",
		"format": "pdf",
		"product_id": "BTC-USD"
	}`, string(body))
}

func TestBuildCreateReportRequestAccountType(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(core.OpCreateReport, core.Params{
		"type":       "account",
		"account_id": "acct-1",
		"start_date": "2025-07-01T00:00:00.000Z",
		"end_date":   "2025-08-01T00:00:00.000Z",
		"format":     "csv",
		"email":      "ops@example.com",
	})
	require.NoError(t, err)

	body, err := sonic.Marshal(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "account",
		"start_date": "2025-07-01T00:00:00.000Z",
		"end_date": "2025-08-01T00:00:00.000Z",
		"format": "csv",
		"account_id": "acct-1",
		"email": "ops@example.com"
	}`, string(body))
}

func TestBuildCreateReportRequestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(core.Params)
		field  string
	}{
		{"missing type", func(p core.Params) { delete(p, "type") }, "type"},
		{"bad type", func(p core.Params) { p["type"] = "ledger" }, "type"},
		{"missing start_date", func(p core.Params) { delete(p, "start_date") }, "start_date"},
		{"missing end_date", func(p core.Params) { delete(p, "end_date") }, "end_date"},
		{"bad format", func(p core.Params) { p["format"] = "xlsx" }, "format"},
		{"fills without product_id", func(p core.Params) { delete(p, "product_id") }, "product_id"},
		{"account without account_id", func(p core.Params) {
			p["type"] = "account"
			delete(p, "product_id")
		}, "account_id"},
	}

	protocol := NewProtocol()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validReportParams()
			tt.mutate(params)

			_, err := protocol.BuildRequest(core.OpCreateReport, params)
			require.Error(t, err)

			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestBuildGetReportRequest(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(core.OpGetReport, core.Params{"report_id": "abc123"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "reports/abc123", req.Path)
	assert.True(t, req.RequireAuth)
	assert.Nil(t, req.Body)

	_, err = p.BuildRequest(core.OpGetReport, core.Params{})
	assert.True(t, core.IsValidationError(err))
}

func TestBuildDepositPaymentMethodRequest(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(core.OpDepositPaymentMethod, core.Params{
		"amount":            json.Number("250.00"),
		"currency":          "USD",
		"payment_method_id": "pm-1",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "deposits/payment-method", req.Path)
	assert.True(t, req.RequireAuth)

	body, err := sonic.Marshal(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"amount": 250.00,
		"currency": "USD",
		"payment_method_id": "pm-1"
	}`, string(body))
}

func TestBuildDepositCoinbaseAccountRequest(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(core.OpDepositCoinbaseAccount, core.Params{
		"amount":              json.Number("0.5"),
		"currency":            "BTC",
		"coinbase_account_id": "wallet-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "deposits/coinbase-account", req.Path)

	body, err := sonic.Marshal(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"amount": 0.5,
		"currency": "BTC",
		"coinbase_account_id": "wallet-1"
	}`, string(body))

	// A wallet deposit never requires a payment method.
	_, err = p.BuildRequest(core.OpDepositCoinbaseAccount, core.Params{
		"amount":   json.Number("0.5"),
		"currency": "BTC",
	})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "coinbase_account_id", verr.Field)
}

func TestBuildWithdrawCryptoRequest(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(core.OpWithdrawCrypto, core.Params{
		"amount":         json.Number("1.25"),
		"currency":       "ETH",
		"crypto_address": "0xabc",
	})
	require.NoError(t, err)
	assert.Equal(t, "withdrawals/crypto", req.Path)

	body, err := sonic.Marshal(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"amount": 1.25,
		"currency": "ETH",
		"crypto_address": "0xabc"
	}`, string(body))
}

func TestTransferAmountValidation(t *testing.T) {
	tests := []struct {
		name   string
		params core.Params
		field  string
	}{
		{"missing amount", core.Params{
			"currency":          "USD",
			"payment_method_id": "pm-1",
		}, "amount"},
		{"zero amount", core.Params{
			"amount":            json.Number("0"),
			"currency":          "USD",
			"payment_method_id": "pm-1",
		}, "amount"},
		{"negative amount", core.Params{
			"amount":            json.Number("-10"),
			"currency":          "USD",
			"payment_method_id": "pm-1",
		}, "amount"},
		{"amount not a number", core.Params{
			"amount":            "lots",
			"currency":          "USD",
			"payment_method_id": "pm-1",
		}, "amount"},
		{"missing currency", core.Params{
			"amount":            json.Number("10"),
			"payment_method_id": "pm-1",
		}, "currency"},
		{"missing payment method", core.Params{
			"amount":   json.Number("10"),
			"currency": "USD",
		}, "payment_method_id"},
	}

	protocol := NewProtocol()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := protocol.BuildRequest(core.OpDepositPaymentMethod, tt.params)
			require.Error(t, err)

			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestBuildUnauthenticatedRequests(t *testing.T) {
	p := NewProtocol()

	req, err := p.BuildRequest(core.OpServerTime, nil)
	require.NoError(t, err)
	assert.Equal(t, "time", req.Path)
	assert.False(t, req.RequireAuth)

	req, err = p.BuildRequest(core.OpListAccounts, nil)
	require.NoError(t, err)
	assert.Equal(t, "accounts", req.Path)
	assert.True(t, req.RequireAuth)
}

func TestSignRequestSetsHeaders(t *testing.T) {
	p := NewProtocol()
	req := core.NewRequest(http.MethodPost, "reports").SetRequireAuth(true)
	creds := core.Credentials{Key: "key-1", Secret: testSecret, Passphrase: "phrase"}

	err := p.SignRequest(req, creds, "1700000000", []byte(`{"type":"fills"}`))
	require.NoError(t, err)

	assert.Equal(t, "key-1", req.Headers["CB-ACCESS-KEY"])
	assert.Equal(t, "1700000000", req.Headers["CB-ACCESS-TIMESTAMP"])
	assert.Equal(t, "phrase", req.Headers["CB-ACCESS-PASSPHRASE"])

	want, err := Sign(testSecret, "1700000000", http.MethodPost, "/reports", []byte(`{"type":"fills"}`))
	require.NoError(t, err)
	assert.Equal(t, want, req.Headers["CB-ACCESS-SIGN"])
}

func TestParseResponseReport(t *testing.T) {
	p := NewProtocol()

	body := []byte(`{
		"id": "abc123",
		"type": "fills",
		"status": "ready",
		"created_at": "2025-08-01T10:00:00.000Z",
		"completed_at": "2025-08-01T10:01:30.000Z",
		"expires_at": "2025-08-08T10:01:30.000Z",
		"file_url": "https://files.example.com/abc123.pdf",
		"params": {"product_id": "BTC-USD"}
	}`)

	result, err := p.ParseResponse(core.OpGetReport, http.StatusOK, body)
	require.NoError(t, err)

	report, ok := result.(*core.Report)
	require.True(t, ok)
	assert.Equal(t, "abc123", report.ID)
	assert.Equal(t, core.ReportFills, report.Type)
	assert.Equal(t, core.ReportReady, report.Status)
	assert.Equal(t, "https://files.example.com/abc123.pdf", report.FileURL)
	assert.False(t, report.CompletedAt.IsZero())
	assert.Equal(t, "BTC-USD", report.Params["product_id"])
}

func TestParseResponsePendingReport(t *testing.T) {
	p := NewProtocol()

	body := []byte(`{"id": "abc123", "type": "fills", "status": "pending"}`)
	result, err := p.ParseResponse(core.OpCreateReport, http.StatusOK, body)
	require.NoError(t, err)

	report, ok := result.(*core.Report)
	require.True(t, ok)
	assert.True(t, report.Status.InProgress())
	assert.Empty(t, report.FileURL)
	assert.True(t, report.CompletedAt.IsZero())
}

func TestParseResponseTransfer(t *testing.T) {
	p := NewProtocol()

	body := []byte(`{
		"id": "transfer-1",
		"amount": "250.00",
		"currency": "USD",
		"payment_method_id": "pm-1",
		"payout_at": "2025-08-27T00:00:00Z"
	}`)

	result, err := p.ParseResponse(core.OpDepositPaymentMethod, http.StatusOK, body)
	require.NoError(t, err)

	transfer, ok := result.(*core.Transfer)
	require.True(t, ok)
	assert.Equal(t, "transfer-1", transfer.ID)
	assert.Equal(t, "250.00", transfer.Amount.String())
	assert.Equal(t, "USD", transfer.Currency)
	assert.False(t, transfer.PayoutAt.IsZero())
}

func TestParseResponseAccounts(t *testing.T) {
	p := NewProtocol()

	body := []byte(`[
		{"id": "a-1", "currency": "USD", "balance": "1000.00", "available": "900.00", "hold": "100.00", "trading_enabled": true},
		{"id": "a-2", "currency": "BTC", "balance": "0.5", "available": "0.5", "hold": "0"}
	]`)

	result, err := p.ParseResponse(core.OpListAccounts, http.StatusOK, body)
	require.NoError(t, err)

	accounts, ok := result.([]core.Account)
	require.True(t, ok)
	require.Len(t, accounts, 2)
	assert.Equal(t, "1000.00", accounts[0].Balance.String())
	assert.True(t, accounts[0].TradingEnabled)
	assert.Equal(t, "BTC", accounts[1].Currency)
}

func TestParseResponseServerTime(t *testing.T) {
	p := NewProtocol()

	body := []byte(`{"iso": "2025-08-25T12:00:00.000Z", "epoch": 1756123200.0}`)
	result, err := p.ParseResponse(core.OpServerTime, http.StatusOK, body)
	require.NoError(t, err)

	st, ok := result.(*core.ServerTime)
	require.True(t, ok)
	assert.Equal(t, 2025, st.ISO.Year())
	assert.InDelta(t, 1756123200.0, st.Epoch, 1)
}

func TestParseResponseAPIError(t *testing.T) {
	p := NewProtocol()

	_, err := p.ParseResponse(core.OpCreateReport, http.StatusBadRequest, []byte(`{"message": "Invalid product_id"}`))
	require.Error(t, err)

	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid product_id", apiErr.Message)
}

func TestParseResponseAPIErrorRawBody(t *testing.T) {
	p := NewProtocol()

	_, err := p.ParseResponse(core.OpGetReport, http.StatusBadGateway, []byte("upstream unavailable"))
	require.Error(t, err)

	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}
