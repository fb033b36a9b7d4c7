package entity

// Order is a normalized historical paper order fetched from the ledger store.
// Field-name differences between exchange schemas are resolved by the ledger
// client before an Order is constructed.
type Order struct {
	Symbol   string
	Side     string
	Price    float64
	Quantity float64
	Fee      float64
}

// Session identifies one running paper-trading session.
type Session struct {
	Key      string
	Exchange string
}
