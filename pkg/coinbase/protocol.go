package coinbase

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
)

const (
	ProductionURL = "https://api.exchange.coinbase.com"
	SandboxURL    = "https://api-public.sandbox.exchange.coinbase.com"
)

// Authentication headers required on every signed request.
const (
	headerKey        = "CB-ACCESS-KEY"
	headerSign       = "CB-ACCESS-SIGN"
	headerTimestamp  = "CB-ACCESS-TIMESTAMP"
	headerPassphrase = "CB-ACCESS-PASSPHRASE"
)

// Protocol implements the core.Protocol interface for Coinbase Exchange.
// It handles request building with field validation, HMAC signing, and
// response parsing. Protocol is stateless and safe for concurrent use.
type Protocol struct{}

// NewProtocol creates a new Coinbase protocol instance.
func NewProtocol() *Protocol {
	return &Protocol{}
}

// Name returns the protocol identifier "coinbase".
func (p *Protocol) Name() string {
	return "coinbase"
}

// BaseURL returns the base URL for the Coinbase Exchange API.
// If sandbox is true, returns the public sandbox URL.
func (p *Protocol) BaseURL(sandbox bool) string {
	if sandbox {
		return SandboxURL
	}
	return ProductionURL
}

// SupportedOperations returns the list of operations supported by this protocol.
func (p *Protocol) SupportedOperations() []core.Operation {
	return []core.Operation{
		core.OpServerTime,
		core.OpListAccounts,
		core.OpGetAccount,
		core.OpListPaymentMethods,
		core.OpListCoinbaseAccounts,
		core.OpCreateReport,
		core.OpGetReport,
		core.OpDepositPaymentMethod,
		core.OpDepositCoinbaseAccount,
		core.OpWithdrawPaymentMethod,
		core.OpWithdrawCoinbaseAccount,
		core.OpWithdrawCrypto,
	}
}

// RateLimits returns the published rate limits for the Coinbase Exchange API.
func (p *Protocol) RateLimits() core.RateLimitConfig {
	return core.RateLimitConfig{
		PublicRequestsPerSecond:  10,
		PrivateRequestsPerSecond: 15,
		Burst:                    30,
	}
}

// BuildRequest validates the parameters for the operation and constructs the
// request descriptor. Missing or malformed fields fail with a ValidationError
// naming the offending external field before any I/O happens.
func (p *Protocol) BuildRequest(op core.Operation, params core.Params) (*core.Request, error) {
	switch op {
	case core.OpServerTime:
		return core.NewRequest(http.MethodGet, "time"), nil
	case core.OpListAccounts:
		return core.NewRequest(http.MethodGet, "accounts").SetRequireAuth(true), nil
	case core.OpGetAccount:
		return p.buildGetAccountRequest(params)
	case core.OpListPaymentMethods:
		return core.NewRequest(http.MethodGet, "payment-methods").SetRequireAuth(true), nil
	case core.OpListCoinbaseAccounts:
		return core.NewRequest(http.MethodGet, "coinbase-accounts").SetRequireAuth(true), nil
	case core.OpCreateReport:
		return p.buildCreateReportRequest(params)
	case core.OpGetReport:
		return p.buildGetReportRequest(params)
	case core.OpDepositPaymentMethod:
		return p.buildPaymentMethodTransferRequest(params, "deposits/payment-method")
	case core.OpDepositCoinbaseAccount:
		return p.buildCoinbaseAccountTransferRequest(params, "deposits/coinbase-account")
	case core.OpWithdrawPaymentMethod:
		return p.buildPaymentMethodTransferRequest(params, "withdrawals/payment-method")
	case core.OpWithdrawCoinbaseAccount:
		return p.buildCoinbaseAccountTransferRequest(params, "withdrawals/coinbase-account")
	case core.OpWithdrawCrypto:
		return p.buildCryptoWithdrawalRequest(params)
	default:
		return nil, fmt.Errorf("unsupported operation: %s", op)
	}
}

// SignRequest attaches the authentication headers: key, signature, timestamp,
// and passphrase. The body must be the exact serialized bytes that will be
// transmitted, so the signature matches what the exchange recomputes.
func (p *Protocol) SignRequest(req *core.Request, creds core.Credentials, timestamp string, body []byte) error {
	signature, err := Sign(creds.Secret, timestamp, req.Method, "/"+req.Path, body)
	if err != nil {
		return err
	}

	req.SetHeader(headerKey, creds.Key)
	req.SetHeader(headerSign, signature)
	req.SetHeader(headerTimestamp, timestamp)
	req.SetHeader(headerPassphrase, creds.Passphrase)

	return nil
}

// ParseResponse interprets the HTTP response for the operation. Non-2xx
// statuses yield an APIError carrying the message from the response body;
// success decodes the body into the operation's typed result.
func (p *Protocol) ParseResponse(op core.Operation, statusCode int, body []byte) (any, error) {
	if statusCode >= http.StatusBadRequest {
		return nil, parseAPIError(statusCode, body)
	}

	switch op {
	case core.OpServerTime:
		var raw timeResponse
		if err := sonic.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal server time: %w", err)
		}
		return normalizeServerTime(&raw), nil

	case core.OpListAccounts:
		var raw []accountResponse
		if err := sonic.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal accounts: %w", err)
		}
		return normalizeAccounts(raw), nil

	case core.OpGetAccount:
		var raw accountResponse
		if err := sonic.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal account: %w", err)
		}
		return normalizeAccount(&raw), nil

	case core.OpListPaymentMethods:
		var raw []paymentMethodResponse
		if err := sonic.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal payment methods: %w", err)
		}
		return normalizePaymentMethods(raw), nil

	case core.OpListCoinbaseAccounts:
		var raw []coinbaseAccountResponse
		if err := sonic.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal coinbase accounts: %w", err)
		}
		return normalizeCoinbaseAccounts(raw), nil

	case core.OpCreateReport, core.OpGetReport:
		var raw reportResponse
		if err := sonic.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		return normalizeReport(&raw), nil

	case core.OpDepositPaymentMethod, core.OpDepositCoinbaseAccount,
		core.OpWithdrawPaymentMethod, core.OpWithdrawCoinbaseAccount,
		core.OpWithdrawCrypto:
		var raw transferResponse
		if err := sonic.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal transfer: %w", err)
		}
		return normalizeTransfer(&raw), nil

	default:
		var result any
		if err := sonic.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return result, nil
	}
}

func (p *Protocol) buildGetAccountRequest(params core.Params) (*core.Request, error) {
	id, err := requireString(params, "account_id")
	if err != nil {
		return nil, err
	}
	return core.NewRequest(http.MethodGet, "accounts/"+id).SetRequireAuth(true), nil
}

func (p *Protocol) buildCreateReportRequest(params core.Params) (*core.Request, error) {
	typ, err := requireString(params, "type")
	if err != nil {
		return nil, err
	}
	reportType := core.ReportType(typ)
	if !reportType.Valid() {
		return nil, core.NewValidationError("type", `must be "fills" or "account"`)
	}

	startDate, err := requireString(params, "start_date")
	if err != nil {
		return nil, err
	}
	endDate, err := requireString(params, "end_date")
	if err != nil {
		return nil, err
	}

	format := core.ReportFormat(optionalString(params, "format"))
	if format == "" {
		format = core.FormatPDF
	}
	if !format.Valid() {
		return nil, core.NewValidationError("format", `must be "pdf" or "csv"`)
	}

	body := createReportBody{
		Type:      typ,
		StartDate: startDate,
		EndDate:   endDate,
		Format:    string(format),
		Email:     optionalString(params, "email"),
	}

	switch reportType {
	case core.ReportFills:
		productID, err := requireString(params, "product_id")
		if err != nil {
			return nil, err
		}
		body.ProductID = productID
	case core.ReportAccount:
		accountID, err := requireString(params, "account_id")
		if err != nil {
			return nil, err
		}
		body.AccountID = accountID
	}

	return core.NewRequest(http.MethodPost, "reports").
		SetBody(body).
		SetRequireAuth(true), nil
}

func (p *Protocol) buildGetReportRequest(params core.Params) (*core.Request, error) {
	id, err := requireString(params, "report_id")
	if err != nil {
		return nil, err
	}
	return core.NewRequest(http.MethodGet, "reports/"+id).SetRequireAuth(true), nil
}

func (p *Protocol) buildPaymentMethodTransferRequest(params core.Params, path string) (*core.Request, error) {
	amount, currency, err := requireFunds(params)
	if err != nil {
		return nil, err
	}
	methodID, err := requireString(params, "payment_method_id")
	if err != nil {
		return nil, err
	}

	body := paymentMethodTransferBody{
		Amount:          amount,
		Currency:        currency,
		PaymentMethodID: methodID,
	}
	return core.NewRequest(http.MethodPost, path).SetBody(body).SetRequireAuth(true), nil
}

func (p *Protocol) buildCoinbaseAccountTransferRequest(params core.Params, path string) (*core.Request, error) {
	amount, currency, err := requireFunds(params)
	if err != nil {
		return nil, err
	}
	accountID, err := requireString(params, "coinbase_account_id")
	if err != nil {
		return nil, err
	}

	body := coinbaseAccountTransferBody{
		Amount:            amount,
		Currency:          currency,
		CoinbaseAccountID: accountID,
	}
	return core.NewRequest(http.MethodPost, path).SetBody(body).SetRequireAuth(true), nil
}

func (p *Protocol) buildCryptoWithdrawalRequest(params core.Params) (*core.Request, error) {
	amount, currency, err := requireFunds(params)
	if err != nil {
		return nil, err
	}
	address, err := requireString(params, "crypto_address")
	if err != nil {
		return nil, err
	}

	body := cryptoWithdrawalBody{
		Amount:        amount,
		Currency:      currency,
		CryptoAddress: address,
	}
	return core.NewRequest(http.MethodPost, "withdrawals/crypto").SetBody(body).SetRequireAuth(true), nil
}

func requireString(params core.Params, field string) (string, error) {
	val, ok := params[field]
	if !ok {
		return "", core.NewValidationError(field, "required field is missing")
	}
	str, ok := val.(string)
	if !ok || str == "" {
		return "", core.NewValidationError(field, "must be a non-empty string")
	}
	return str, nil
}

func optionalString(params core.Params, field string) string {
	if val, ok := params[field]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// requireFunds validates the amount/currency pair shared by every deposit and
// withdrawal operation. The amount must be a strictly positive number.
func requireFunds(params core.Params) (json.Number, string, error) {
	val, ok := params["amount"]
	if !ok {
		return "", "", core.NewValidationError("amount", "required field is missing")
	}
	num, ok := val.(json.Number)
	if !ok {
		return "", "", core.NewValidationError("amount", "must be a number")
	}
	dec, _, err := apd.NewFromString(num.String())
	if err != nil {
		return "", "", core.NewValidationError("amount", "must be a number")
	}
	if dec.Sign() <= 0 {
		return "", "", core.NewValidationError("amount", "must be a positive number")
	}

	currency, err := requireString(params, "currency")
	if err != nil {
		return "", "", err
	}
	return num, currency, nil
}

func parseAPIError(statusCode int, body []byte) *core.APIError {
	var payload struct {
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	if err := sonic.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return core.NewAPIError(statusCode, payload.Message)
		}
		if payload.Err != "" {
			return core.NewAPIError(statusCode, payload.Err)
		}
	}
	return core.NewAPIError(statusCode, string(body))
}
