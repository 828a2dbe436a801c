package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindVaultCaseInsensitive(t *testing.T) {
	v := Vaults()[0]

	found, ok := FindVault(v.ChainID, strings.ToUpper(v.Token.Address))
	require.True(t, ok)
	assert.Equal(t, v.VaultAddress, found.VaultAddress)

	_, ok = FindVault(v.ChainID, "0x0000000000000000000000000000000000000001")
	assert.False(t, ok)
}

func TestEveryVaultChainIsSwappable(t *testing.T) {
	// Routing and order placement share one network table; a vault on a chain
	// outside it could never be reached by a swap.
	for _, v := range Vaults() {
		_, ok := NetworkID(v.ChainID)
		assert.True(t, ok, "vault chain %d has no network mapping", v.ChainID)
	}
}

func TestNetworkIDUnknownChain(t *testing.T) {
	_, ok := NetworkID(999)
	assert.False(t, ok)
}

func TestChainNameFallsBackToID(t *testing.T) {
	assert.Equal(t, "Base", ChainName(8453))
	assert.Equal(t, "chain 999", ChainName(999))
}

func TestStablePriorityOrder(t *testing.T) {
	assert.Equal(t, []string{"USDC", "USDT", "EURC", "USDS"}, StablePriority)
}
