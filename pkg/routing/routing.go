package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultroute/pkg/catalog"
)

// Input is a user's deposit request as seen by the route analyzer. Amount is
// a non-negative integer encoded as a decimal string in the token's smallest
// unit. TokenSymbol and PreferredProtocol are optional.
type Input struct {
	ChainID           uint64
	TokenAddress      string
	TokenSymbol       string
	Amount            string
	PreferredProtocol catalog.Protocol
}

// SwapParams carries the parameters a cross-chain swap order needs, in
// generic chain-ID space. Translation to the swap-intent network space
// happens at order time.
type SwapParams struct {
	SrcChainID uint64
	DstChainID uint64
	SrcToken   string
	DstToken   string
	Amount     string
}

// Route is a candidate path from the user's (chain, token) to a target vault.
// When NeedsSwap is false the source and target sides are identical.
type Route struct {
	NeedsSwap   bool
	SourceChain uint64
	SourceToken string
	TargetChain uint64
	TargetToken string
	TargetVault catalog.Vault
	Swap        *SwapParams
}

// Analysis is the result of analyzing one input. An empty Routes slice with a
// nil Recommended is a normal outcome meaning no path exists, not an error.
type Analysis struct {
	DirectlySupported bool
	Routes            []Route
	Recommended       *Route
	Alternatives      []catalog.Vault
}

// AnalyzeRoute decides whether the input token is directly depositable and
// otherwise enumerates and ranks swap routes into supported vaults. It is
// deterministic and has no side effects: everything derives from the static
// catalogue and network table.
func AnalyzeRoute(in Input) (*Analysis, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	// Direct match: the exact (chain, token) pair is already a vault asset.
	if v, ok := catalog.FindVault(in.ChainID, in.TokenAddress); ok {
		if in.PreferredProtocol == "" || v.Protocol == in.PreferredProtocol {
			route := directRoute(in, v)
			return &Analysis{
				DirectlySupported: true,
				Routes:            []Route{route},
				Recommended:       &route,
				Alternatives:      catalog.Vaults(),
			}, nil
		}
	}

	routes := sameSymbolRoutes(in)
	if len(routes) == 0 {
		routes = stableFallbackRoutes(in)
	}
	rankRoutes(routes, in.PreferredProtocol)

	analysis := &Analysis{
		Routes:       routes,
		Alternatives: catalog.Vaults(),
	}
	if len(routes) > 0 {
		analysis.Recommended = &routes[0]
	}
	return analysis, nil
}

func validate(in Input) error {
	if in.ChainID == 0 {
		return fmt.Errorf("chain id must be a positive integer")
	}
	if !common.IsHexAddress(in.TokenAddress) {
		return fmt.Errorf("invalid token address: %s", in.TokenAddress)
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return err
	}
	return nil
}

// ValidateAmount checks the raw-unit decimal string form. Zero is allowed;
// the caller decides whether a zero deposit is meaningful.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount is required")
	}
	for _, r := range amount {
		if r < '0' || r > '9' {
			return fmt.Errorf("invalid amount %q: expected an integer in smallest token units", amount)
		}
	}
	return nil
}

func directRoute(in Input, v catalog.Vault) Route {
	return Route{
		SourceChain: in.ChainID,
		SourceToken: in.TokenAddress,
		TargetChain: v.ChainID,
		TargetToken: v.Token.Address,
		TargetVault: v,
	}
}

// sameSymbolRoutes finds vaults holding the input token's symbol on other
// chains (or under a different address on the same chain), keeping only
// candidates where both ends of the swap are in the intent network.
func sameSymbolRoutes(in Input) []Route {
	if in.TokenSymbol == "" {
		return nil
	}
	var routes []Route
	for _, v := range catalog.Vaults() {
		if !strings.EqualFold(v.Token.Symbol, in.TokenSymbol) {
			continue
		}
		if in.PreferredProtocol != "" && v.Protocol != in.PreferredProtocol {
			continue
		}
		if v.ChainID == in.ChainID && strings.EqualFold(v.Token.Address, in.TokenAddress) {
			continue
		}
		if r, ok := swapRoute(in, v); ok {
			routes = append(routes, r)
		}
	}
	return routes
}

// stableFallbackRoutes searches for vaults holding any token in the fixed
// stablecoin priority list, regardless of the input's symbol.
func stableFallbackRoutes(in Input) []Route {
	var routes []Route
	for _, symbol := range catalog.StablePriority {
		for _, v := range catalog.Vaults() {
			if !strings.EqualFold(v.Token.Symbol, symbol) {
				continue
			}
			if in.PreferredProtocol != "" && v.Protocol != in.PreferredProtocol {
				continue
			}
			if v.ChainID == in.ChainID && strings.EqualFold(v.Token.Address, in.TokenAddress) {
				continue
			}
			if r, ok := swapRoute(in, v); ok {
				routes = append(routes, r)
			}
		}
	}
	return routes
}

func swapRoute(in Input, v catalog.Vault) (Route, bool) {
	if _, ok := catalog.NetworkID(in.ChainID); !ok {
		return Route{}, false
	}
	if _, ok := catalog.NetworkID(v.ChainID); !ok {
		return Route{}, false
	}
	return Route{
		NeedsSwap:   true,
		SourceChain: in.ChainID,
		SourceToken: in.TokenAddress,
		TargetChain: v.ChainID,
		TargetToken: v.Token.Address,
		TargetVault: v,
		Swap: &SwapParams{
			SrcChainID: in.ChainID,
			DstChainID: v.ChainID,
			SrcToken:   in.TokenAddress,
			DstToken:   v.Token.Address,
			Amount:     in.Amount,
		},
	}, true
}

// rankRoutes sorts candidates by the total order: no-swap first, then
// preferred protocol, then the designated low-fee chain, then USDC, and
// otherwise keeps the enumeration order.
func rankRoutes(routes []Route, preferred catalog.Protocol) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.NeedsSwap != b.NeedsSwap {
			return !a.NeedsSwap
		}
		if preferred != "" {
			am, bm := a.TargetVault.Protocol == preferred, b.TargetVault.Protocol == preferred
			if am != bm {
				return am
			}
		}
		ap, bp := a.TargetChain == catalog.PreferredChainID, b.TargetChain == catalog.PreferredChainID
		if ap != bp {
			return ap
		}
		au, bu := a.TargetVault.Token.Symbol == "USDC", b.TargetVault.Token.Symbol == "USDC"
		if au != bu {
			return au
		}
		return false
	})
}
