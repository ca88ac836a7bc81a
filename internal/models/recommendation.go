package models

import "time"

// SaleRow is one line of a sales export: a product bought in a transaction
type SaleRow struct {
	TransactionID string  `json:"transaction_id"`
	Product       string  `json:"product"`
	Price         float64 `json:"price"`
}

// CategoryRow maps an item name to its category in the reference sheet
type CategoryRow struct {
	Item     string `json:"item"`
	Category string `json:"category"`
}

// TransactionRecord is a sales row after normalization and the category join.
// Category is empty when the product has no entry in the reference sheet.
type TransactionRecord struct {
	Product  string  `json:"product"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
}

// Recommendation is one ranked result returned to API clients
type Recommendation struct {
	Product   string  `json:"product"`
	Category  string  `json:"category"`
	AvgPrice  float64 `json:"avgPrice"`
	Frequency int     `json:"frequency"`
}

// ModelStatus summarizes the model currently being served
type ModelStatus struct {
	Products     int       `json:"products"`
	Pairs        int       `json:"pairs"`
	Transactions int       `json:"transactions"`
	Categories   int       `json:"categories"`
	BuiltAt      time.Time `json:"builtAt"`
	Source       string    `json:"source"`
}

// Dataset is the raw input of a model build
type Dataset struct {
	Sales      []SaleRow
	Categories []CategoryRow
	// Skipped counts input rows dropped while parsing
	Skipped int
}
