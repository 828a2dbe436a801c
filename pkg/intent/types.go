package intent

// QuoteRequest asks the swap-intent API to price an exchange between two
// (chain, token) pairs. Chain IDs are already in the API's network identifier
// space; translation from generic chain IDs happens before this point.
type QuoteRequest struct {
	SrcChainID      uint64 `json:"srcChain"`
	DstChainID      uint64 `json:"dstChain"`
	SrcTokenAddress string `json:"srcTokenAddress"`
	DstTokenAddress string `json:"dstTokenAddress"`
	Amount          string `json:"amount"`
	WalletAddress   string `json:"walletAddress"`
}

// Preset carries the execution parameters the API chose for a quote. The
// orchestrator only cares how many independent secrets the order requires.
type Preset struct {
	SecretsCount int `json:"secretsCount"`
}

// Quote is the priced exchange returned by the API. Quotes are time-sensitive
// and consumed immediately by order placement; the provider rejects stale ones.
type Quote struct {
	QuoteID        string `json:"quoteId"`
	SrcTokenAmount string `json:"srcTokenAmount"`
	DstTokenAmount string `json:"dstTokenAmount"`
	Preset         Preset `json:"preset"`
}

// OrderRequest submits the commitment alongside a quote.
type OrderRequest struct {
	QuoteID       string   `json:"quoteId"`
	WalletAddress string   `json:"walletAddress"`
	HashLock      string   `json:"hashLock"`
	SecretHashes  []string `json:"secretHashes"`
}

// OrderPlacement identifies the placed order.
type OrderPlacement struct {
	OrderHash string `json:"orderHash"`
}

// OrderStatus is the read-through view of the server-side order state.
// StatusExecuted is the only success terminal the client acts on.
type OrderStatus struct {
	Status string `json:"status"`
}

// StatusExecuted marks an order fully settled by the counterparty.
const StatusExecuted = "executed"

// Fill is a counterparty match ready to accept a secret. Idx indexes into the
// order's secret set.
type Fill struct {
	Idx int `json:"idx"`
}
