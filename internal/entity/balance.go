package entity

// BalanceRow holds one asset's funds within a session.
// Total must always equal Available + Locked; the settlement engine
// recomputes it after every mutation.
type BalanceRow struct {
	Asset     string  `json:"asset"`
	Available float64 `json:"available"`
	Locked    float64 `json:"locked"`
	Total     float64 `json:"total"`
}

// RecomputeTotal restores the Total invariant after Available or Locked changed.
func (r *BalanceRow) RecomputeTotal() {
	r.Total = r.Available + r.Locked
}

// Balances maps asset name to its balance row for one session.
type Balances map[string]*BalanceRow

// Row returns the balance row for an asset, creating a zero-valued
// row on first reference. Rows are never deleted.
func (b Balances) Row(asset string) *BalanceRow {
	row, ok := b[asset]
	if !ok {
		row = &BalanceRow{Asset: asset}
		b[asset] = row
	}
	return row
}
