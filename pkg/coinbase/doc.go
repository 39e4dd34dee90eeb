// Package coinbase implements a signed REST client for the Coinbase Exchange
// API: report generation with caller-driven polling, fiat deposits and
// withdrawals, and account queries.
//
// API documentation: https://docs.cloud.coinbase.com/exchange/reference
package coinbase
