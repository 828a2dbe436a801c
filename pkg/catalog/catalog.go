package catalog

import "strings"

// Protocol identifies the lending protocol behind a vault.
type Protocol string

const (
	ProtocolMorpho Protocol = "morpho"
	ProtocolEuler  Protocol = "euler"
)

// Token describes the deposit asset of a vault.
type Token struct {
	Symbol   string
	Address  string
	Decimals int
}

// Vault is a static catalogue entry for a supported yield vault.
// The catalogue is read-only shared data; entries are never mutated at runtime.
type Vault struct {
	Protocol     Protocol
	ChainID      uint64
	ChainName    string
	VaultAddress string
	Token        Token
}

// PreferredChainID is the designated low-fee chain used as a ranking
// tie-breaker when multiple swap routes are viable.
const PreferredChainID = 8453 // Base

// SettlementRouter is the fixed on-chain aggregation router that must be
// approved to spend the source token before a swap. Same address on every
// supported chain.
const SettlementRouter = "0x111111125421cA6dc452d289314280a0f8842A65"

// StablePriority is the fallback search order when the input token's symbol
// has no same-symbol vault anywhere in the catalogue.
var StablePriority = []string{"USDC", "USDT", "EURC", "USDS"}

var vaults = []Vault{
	{
		Protocol:     ProtocolMorpho,
		ChainID:      8453,
		ChainName:    "Base",
		VaultAddress: "0xbeeF010f9cb27031ad51e3333f9aF9C6B1228183",
		Token:        Token{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
	},
	{
		Protocol:     ProtocolMorpho,
		ChainID:      8453,
		ChainName:    "Base",
		VaultAddress: "0xf24608E0CCb972b0b0f4A6446a0BBf58c701a026",
		Token:        Token{Symbol: "EURC", Address: "0x60a3E35Cc302bFA44Cb288Bc5a4F316Fdb1adb42", Decimals: 6},
	},
	{
		Protocol:     ProtocolEuler,
		ChainID:      8453,
		ChainName:    "Base",
		VaultAddress: "0x0A1a3b5f2041F33522C4efc754a7D096f880eE16",
		Token:        Token{Symbol: "USDS", Address: "0x820C137fa70C8691f0e44Dc420a5e53c168921Dc", Decimals: 18},
	},
	{
		Protocol:     ProtocolMorpho,
		ChainID:      42161,
		ChainName:    "Arbitrum",
		VaultAddress: "0xa60643c90A542BEbC78a69F1A19Cd2eFcFa1b565",
		Token:        Token{Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
	},
	{
		Protocol:     ProtocolEuler,
		ChainID:      42161,
		ChainName:    "Arbitrum",
		VaultAddress: "0xd3D55E98d1A8D8d6dE7cE757a1e5e1A4cB6d4e42",
		Token:        Token{Symbol: "USDT", Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Decimals: 6},
	},
	{
		Protocol:     ProtocolMorpho,
		ChainID:      130,
		ChainName:    "Unichain",
		VaultAddress: "0x38f4f3B6533de0023b9DCd04b02F93d36ad1F9f9",
		Token:        Token{Symbol: "USDC", Address: "0x078D782b760474a361dDA0AF3839290b0EF57AD6", Decimals: 6},
	},
}

// Vaults returns the static vault catalogue.
func Vaults() []Vault {
	return vaults
}

// FindVault returns the first catalogue entry matching the (chain, token)
// pair. Token addresses compare case-insensitively; first match wins.
func FindVault(chainID uint64, tokenAddress string) (Vault, bool) {
	for _, v := range vaults {
		if v.ChainID == chainID && strings.EqualFold(v.Token.Address, tokenAddress) {
			return v, true
		}
	}
	return Vault{}, false
}
