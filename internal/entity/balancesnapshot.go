package entity

import "time"

// BalanceSnapshot records one published session balance.
// String fields avoid precision issues when rendered in UI layers.
type BalanceSnapshot struct {
	Timestamp  time.Time `json:"ts"`
	SessionKey string    `json:"session_key"`
	Exchange   string    `json:"exchange"`
	Gross      string    `json:"gross"`
	Fees       string    `json:"fees"`
	Net        string    `json:"net"`
	Tokens     string    `json:"tokens,omitempty"`
}

// BalanceSnapshotRecord bundles a snapshot with the log index it originated from.
type BalanceSnapshotRecord struct {
	Index    uint64
	Snapshot BalanceSnapshot
}
