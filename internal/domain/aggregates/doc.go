// Package aggregates defines the write boundaries of the marketplace.
//
// Contracts here carry no persistence detail; implementations live in
// internal/data/aggregates and own their transactions.
package aggregates
