package catalog

import "fmt"

// networkIDs maps generic EVM chain IDs to the network identifiers understood
// by the swap-intent API. This is the single authoritative table: both route
// analysis and order placement consult it, so "routable" and "swappable"
// cannot drift apart.
var networkIDs = map[uint64]uint64{
	1:     1,     // Ethereum
	10:    10,    // Optimism
	56:    56,    // BNB Chain
	130:   130,   // Unichain
	137:   137,   // Polygon
	8453:  8453,  // Base
	42161: 42161, // Arbitrum
	43114: 43114, // Avalanche
}

// chainNames covers every chain in the network table, including chains that
// carry no vault but can act as a swap source.
var chainNames = map[uint64]string{
	1:     "Ethereum",
	10:    "Optimism",
	56:    "BNB Chain",
	130:   "Unichain",
	137:   "Polygon",
	8453:  "Base",
	42161: "Arbitrum",
	43114: "Avalanche",
}

// NetworkID translates a generic chain ID into the swap-intent API's network
// identifier. The second return is false when the chain is not part of the
// swap network at all.
func NetworkID(chainID uint64) (uint64, bool) {
	id, ok := networkIDs[chainID]
	return id, ok
}

// ChainName returns a human-readable name for a chain ID, or "chain <id>"
// when unknown.
func ChainName(chainID uint64) string {
	if name, ok := chainNames[chainID]; ok {
		return name
	}
	return fmt.Sprintf("chain %d", chainID)
}
