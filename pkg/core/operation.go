package core

// Operation represents a type of action that can be performed against the
// exchange.
type Operation int

// Operation constants define all supported exchange operations.
const (
	// OpServerTime retrieves the exchange's server time. Unauthenticated.
	OpServerTime Operation = iota
	// OpListAccounts retrieves all trading accounts for the profile.
	OpListAccounts
	// OpGetAccount retrieves a single trading account by ID.
	OpGetAccount
	// OpListPaymentMethods retrieves the linked fiat payment methods.
	OpListPaymentMethods
	// OpListCoinbaseAccounts retrieves the linked Coinbase wallets.
	OpListCoinbaseAccounts
	// OpCreateReport submits a report generation job.
	OpCreateReport
	// OpGetReport retrieves the status of a report generation job.
	OpGetReport
	// OpDepositPaymentMethod deposits funds from a payment method.
	OpDepositPaymentMethod
	// OpDepositCoinbaseAccount deposits funds from a Coinbase wallet.
	OpDepositCoinbaseAccount
	// OpWithdrawPaymentMethod withdraws funds to a payment method.
	OpWithdrawPaymentMethod
	// OpWithdrawCoinbaseAccount withdraws funds to a Coinbase wallet.
	OpWithdrawCoinbaseAccount
	// OpWithdrawCrypto withdraws funds to a crypto address.
	OpWithdrawCrypto
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return [...]string{
		"SERVER_TIME",
		"LIST_ACCOUNTS",
		"GET_ACCOUNT",
		"LIST_PAYMENT_METHODS",
		"LIST_COINBASE_ACCOUNTS",
		"CREATE_REPORT",
		"GET_REPORT",
		"DEPOSIT_PAYMENT_METHOD",
		"DEPOSIT_COINBASE_ACCOUNT",
		"WITHDRAW_PAYMENT_METHOD",
		"WITHDRAW_COINBASE_ACCOUNT",
		"WITHDRAW_CRYPTO",
	}[o]
}
