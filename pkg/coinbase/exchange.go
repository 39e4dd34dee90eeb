package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"nakula/internal/circuitbreaker"
	"nakula/internal/keyring"
	"nakula/internal/ratelimit"
	"nakula/internal/transport"
	"nakula/pkg/core"
)

// reportTimeLayout is the timestamp format the reports endpoint expects for
// start_date and end_date.
const reportTimeLayout = "2006-01-02T15:04:05.000Z"

// Limiter throttles outgoing requests. The default implementation is a token
// bucket sized from the config; callers can plug their own via
// WithRateLimiter.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Exchange is a client for the Coinbase Exchange REST API. It validates
// request parameters locally, signs authenticated requests, and returns typed
// results. Exchange is safe for concurrent use; it performs no automatic
// retries.
type Exchange struct {
	config   *core.Config
	protocol *Protocol
	http     *transport.Client
	limiter  Limiter
	breaker  *circuitbreaker.Breaker
	keyRing  *keyring.Ring
	logger   zerolog.Logger
	baseURL  string
	now      func() time.Time
}

// Option customizes an Exchange during construction.
type Option func(*Exchange)

// WithLogger sets the logger used for request and lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Exchange) {
		e.logger = logger
	}
}

// WithKeyRing supplies a key ring for credential rotation. When set, the ring
// takes precedence over Config.Credentials.
func WithKeyRing(ring *keyring.Ring) Option {
	return func(e *Exchange) {
		e.keyRing = ring
	}
}

// WithRateLimiter replaces the built-in token bucket limiter.
func WithRateLimiter(limiter Limiter) Option {
	return func(e *Exchange) {
		e.limiter = limiter
	}
}

// WithBaseURL overrides the API base URL. Intended for tests and proxies.
func WithBaseURL(baseURL string) Option {
	return func(e *Exchange) {
		e.baseURL = baseURL
	}
}

// New creates an Exchange from the given configuration. The config is
// validated before any resources are allocated.
func New(config *core.Config, opts ...Option) (*Exchange, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Exchange{
		config:   config,
		protocol: NewProtocol(),
		logger:   zerolog.New(os.Stderr).With().Timestamp().Str("exchange", "coinbase").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if level, err := zerolog.ParseLevel(config.LogLevel); err == nil && config.LogLevel != "" {
		e.logger = e.logger.Level(level)
	}

	baseURL := e.baseURL
	if baseURL == "" {
		baseURL = e.protocol.BaseURL(config.Sandbox)
	}
	httpClient, err := transport.NewClient(&transport.Config{
		BaseURL: baseURL,
		Timeout: config.Timeout,
	}, e.logger)
	if err != nil {
		return nil, err
	}
	e.http = httpClient

	if e.limiter == nil {
		e.limiter = ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)
	}
	if config.CircuitBreakerEnabled {
		e.breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Timeout:          config.CircuitBreakerTimeout,
		})
	}

	return e, nil
}

// Name returns the exchange identifier.
func (e *Exchange) Name() string {
	return e.protocol.Name()
}

// Close releases the underlying HTTP resources. Requests issued after Close
// fail with ErrClientClosed.
func (e *Exchange) Close() error {
	return e.http.Close()
}

// CreateReportParams describes a report generation request. Type, StartDate,
// and EndDate are always required; fills reports additionally require
// ProductID and account reports require AccountID.
type CreateReportParams struct {
	Type      core.ReportType
	StartDate time.Time
	EndDate   time.Time
	ProductID string
	AccountID string
	// Format defaults to PDF when empty.
	Format core.ReportFormat
	// Email, when set, has the exchange mail the report on completion.
	Email string
}

// TransferParams describes a deposit or withdrawal. Amount and Currency are
// always required; exactly one funding source field applies per operation.
type TransferParams struct {
	Amount   apd.Decimal
	Currency string
	// PaymentMethodID selects a linked bank payment method.
	PaymentMethodID string
	// CoinbaseAccountID selects a linked Coinbase wallet.
	CoinbaseAccountID string
	// CryptoAddress is the destination address for crypto withdrawals.
	CryptoAddress string
}

// CreateReport submits a report generation job and returns its descriptor.
// The returned report is typically still pending; use GetReport or WaitReport
// to follow it to completion.
func (e *Exchange) CreateReport(ctx context.Context, params CreateReportParams) (*core.Report, error) {
	if params.StartDate.IsZero() {
		return nil, core.NewValidationError("start_date", "required field is missing")
	}
	if params.EndDate.IsZero() {
		return nil, core.NewValidationError("end_date", "required field is missing")
	}

	p := core.Params{
		"type":       string(params.Type),
		"start_date": params.StartDate.UTC().Format(reportTimeLayout),
		"end_date":   params.EndDate.UTC().Format(reportTimeLayout),
	}
	if params.ProductID != "" {
		p["product_id"] = params.ProductID
	}
	if params.AccountID != "" {
		p["account_id"] = params.AccountID
	}
	if params.Format != "" {
		p["format"] = string(params.Format)
	}
	if params.Email != "" {
		p["email"] = params.Email
	}

	result, err := e.do(ctx, core.OpCreateReport, p)
	if err != nil {
		return nil, err
	}
	return assertType[*core.Report](result)
}

// GetReport fetches the current state of a report job by ID.
func (e *Exchange) GetReport(ctx context.Context, reportID string) (*core.Report, error) {
	p := core.Params{}
	if reportID != "" {
		p["report_id"] = reportID
	}
	result, err := e.do(ctx, core.OpGetReport, p)
	if err != nil {
		return nil, err
	}
	return assertType[*core.Report](result)
}

// WaitReport polls a report job until it reaches a terminal status or the
// context is done. On cancellation it returns the last observed report
// together with a TransportError wrapping the context error.
func (e *Exchange) WaitReport(ctx context.Context, reportID string, interval time.Duration) (*core.Report, error) {
	if interval <= 0 {
		return nil, core.NewValidationError("interval", "must be a positive duration")
	}

	var last *core.Report
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := e.GetReport(ctx, reportID)
		if err != nil {
			return last, err
		}
		last = report
		if report.Status.Terminal() {
			return report, nil
		}

		e.logger.Debug().
			Str("report_id", reportID).
			Str("status", string(report.Status)).
			Msg("report not ready")

		select {
		case <-ctx.Done():
			return last, core.NewTransportError(ctx.Err())
		case <-ticker.C:
		}
	}
}

// DepositPaymentMethod moves funds from a linked payment method into the
// trading profile.
func (e *Exchange) DepositPaymentMethod(ctx context.Context, params TransferParams) (*core.Transfer, error) {
	return e.transfer(ctx, core.OpDepositPaymentMethod, params)
}

// DepositCoinbaseAccount moves funds from a linked Coinbase wallet into the
// trading profile.
func (e *Exchange) DepositCoinbaseAccount(ctx context.Context, params TransferParams) (*core.Transfer, error) {
	return e.transfer(ctx, core.OpDepositCoinbaseAccount, params)
}

// WithdrawPaymentMethod moves funds from the trading profile to a linked
// payment method.
func (e *Exchange) WithdrawPaymentMethod(ctx context.Context, params TransferParams) (*core.Transfer, error) {
	return e.transfer(ctx, core.OpWithdrawPaymentMethod, params)
}

// WithdrawCoinbaseAccount moves funds from the trading profile to a linked
// Coinbase wallet.
func (e *Exchange) WithdrawCoinbaseAccount(ctx context.Context, params TransferParams) (*core.Transfer, error) {
	return e.transfer(ctx, core.OpWithdrawCoinbaseAccount, params)
}

// WithdrawCrypto sends funds from the trading profile to an external crypto
// address.
func (e *Exchange) WithdrawCrypto(ctx context.Context, params TransferParams) (*core.Transfer, error) {
	return e.transfer(ctx, core.OpWithdrawCrypto, params)
}

func (e *Exchange) transfer(ctx context.Context, op core.Operation, params TransferParams) (*core.Transfer, error) {
	p := core.Params{
		"amount":   json.Number(params.Amount.Text('f')),
		"currency": params.Currency,
	}
	if params.PaymentMethodID != "" {
		p["payment_method_id"] = params.PaymentMethodID
	}
	if params.CoinbaseAccountID != "" {
		p["coinbase_account_id"] = params.CoinbaseAccountID
	}
	if params.CryptoAddress != "" {
		p["crypto_address"] = params.CryptoAddress
	}

	result, err := e.do(ctx, op, p)
	if err != nil {
		return nil, err
	}
	return assertType[*core.Transfer](result)
}

// ListAccounts returns all trading accounts for the authenticated profile.
func (e *Exchange) ListAccounts(ctx context.Context) ([]core.Account, error) {
	result, err := e.do(ctx, core.OpListAccounts, nil)
	if err != nil {
		return nil, err
	}
	return assertType[[]core.Account](result)
}

// GetAccount returns a single trading account by ID.
func (e *Exchange) GetAccount(ctx context.Context, accountID string) (*core.Account, error) {
	p := core.Params{}
	if accountID != "" {
		p["account_id"] = accountID
	}
	result, err := e.do(ctx, core.OpGetAccount, p)
	if err != nil {
		return nil, err
	}
	return assertType[*core.Account](result)
}

// ListPaymentMethods returns the linked fiat funding sources.
func (e *Exchange) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	result, err := e.do(ctx, core.OpListPaymentMethods, nil)
	if err != nil {
		return nil, err
	}
	return assertType[[]core.PaymentMethod](result)
}

// ListCoinbaseAccounts returns the linked Coinbase wallets.
func (e *Exchange) ListCoinbaseAccounts(ctx context.Context) ([]core.CoinbaseAccount, error) {
	result, err := e.do(ctx, core.OpListCoinbaseAccounts, nil)
	if err != nil {
		return nil, err
	}
	return assertType[[]core.CoinbaseAccount](result)
}

// ServerTime returns the exchange's current time.
func (e *Exchange) ServerTime(ctx context.Context) (*core.ServerTime, error) {
	result, err := e.do(ctx, core.OpServerTime, nil)
	if err != nil {
		return nil, err
	}
	return assertType[*core.ServerTime](result)
}

// do runs the full request pipeline for one operation: build and validate,
// serialize the body once, rate limit, check the breaker, sign, send, and
// parse. Validation failures never reach the wire.
func (e *Exchange) do(ctx context.Context, op core.Operation, params core.Params) (any, error) {
	req, err := e.protocol.BuildRequest(op, params)
	if err != nil {
		return nil, err
	}

	// Serialize exactly once so the signed bytes are the transmitted bytes.
	var body []byte
	if req.Body != nil {
		body, err = sonic.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	} else if req.Method != http.MethodGet {
		body = []byte("{}")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, core.NewTransportError(err)
	}
	if e.breaker != nil && !e.breaker.Allow() {
		return nil, core.ErrCircuitOpen
	}

	if req.RequireAuth {
		creds, err := e.credentials()
		if err != nil {
			return nil, err
		}
		timestamp := strconv.FormatInt(e.now().Unix(), 10)
		if err := e.protocol.SignRequest(req, creds, timestamp, body); err != nil {
			return nil, err
		}
	}

	resp, err := e.send(ctx, req, body)
	if e.breaker != nil {
		e.breaker.Record(err == nil && resp != nil && resp.IsSuccess())
	}
	if err != nil {
		e.onRequestError(err)
		return nil, core.NewTransportError(err)
	}

	result, err := e.protocol.ParseResponse(op, resp.StatusCode(), resp.Bytes())
	if err != nil {
		e.onRequestError(err)
		e.logger.Debug().
			Stringer("operation", op).
			Int("status", resp.StatusCode()).
			Err(err).
			Msg("request failed")
		return nil, err
	}

	if e.keyRing != nil && req.RequireAuth {
		e.keyRing.MarkUsed()
	}
	return result, nil
}

func (e *Exchange) send(ctx context.Context, req *core.Request, body []byte) (*resty.Response, error) {
	r, err := e.http.Request()
	if err != nil {
		return nil, err
	}

	r.SetContext(ctx)
	r.SetHeader("Content-Type", "application/json")
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if body != nil {
		r.SetBody(body)
	}

	url := "/" + req.Path
	switch req.Method {
	case http.MethodGet:
		return r.Get(url)
	case http.MethodPost:
		return r.Post(url)
	case http.MethodDelete:
		return r.Delete(url)
	default:
		return r.Execute(req.Method, url)
	}
}

// credentials resolves the signing credentials, preferring the key ring over
// the static config.
func (e *Exchange) credentials() (core.Credentials, error) {
	if e.keyRing != nil {
		key, err := e.keyRing.Current()
		if err != nil {
			return core.Credentials{}, err
		}
		return core.Credentials{
			Key:        key.Key,
			Secret:     key.Secret,
			Passphrase: key.Passphrase,
		}, nil
	}
	if e.config.Credentials != nil {
		return *e.config.Credentials, nil
	}
	return core.Credentials{}, fmt.Errorf("%w: no credentials configured", core.ErrInvalidCredentials)
}

func (e *Exchange) onRequestError(err error) {
	if e.keyRing != nil {
		e.keyRing.OnError(err)
	}
}

func assertType[T any](result any) (T, error) {
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected response type: %T", result)
	}
	return typed, nil
}
