// Package stellar contains the source-ledger side of the bridge: network
// configuration, Horizon reads, Soroban RPC, and lock transaction
// construction.
package stellar

import (
	"fmt"

	"github.com/stellar/go/network"
)

// Bridge contract deployments per Stellar network.
const (
	testnetContractID = "CDTA5IYGUGRI4PAGXJL7TPBEIC3EZY6V23ILF5EDVXFVLCGGMVOK4CRL"
	mainnetContractID = "CDMHKRFQPMCBZFY225BNLNXA6YRTOCDD2VDC2AXC4YP3XCYMLYZAHWDS"

	// Stellar Asset Contract for the native asset (XLM) per network.
	testnetNativeContractID = "CDLZFC3SYJYDZT7K67VZ75HPJVIEUVNIXF47ZG2FB2RMQQVU2HHGCYSC"
	mainnetNativeContractID = "CAS3J7GYLGXMF6TDJBBYYSE3HQ6BBSMLNUQ34T6TZMYMW2EVH34XOWMA"

	testnetSorobanURL = "https://soroban-testnet.stellar.org"
	mainnetSorobanURL = "https://soroban-mainnet.stellar.org"

	testnetHorizonURL = "https://horizon-testnet.stellar.org"
	mainnetHorizonURL = "https://horizon.stellar.org"
)

// Network is the resolved configuration for one bridge attempt: which
// Stellar network holds the lock contract and which EVM chain receives
// the release. Read-only for the lifetime of an attempt.
type Network struct {
	Name             string
	ContractID       string
	NativeContractID string
	SorobanURL       string
	HorizonURL       string
	Passphrase       string

	DestChainID   string
	DestChainName string
	// Explorer templates take the transaction hash as the single
	// format argument. An empty template means no public explorer is
	// known for the chain.
	ExplorerTemplate     string
	LockExplorerTemplate string
}

// Resolve maps a destination chain id to its bridge network
// configuration. Unknown chain ids fall back to the testnet deployment
// with no destination explorer; callers that want strictness must
// whitelist chain ids before resolving.
func Resolve(destChainID string) Network {
	switch destChainID {
	case "17000":
		return Network{
			Name:                 "testnet",
			ContractID:           testnetContractID,
			NativeContractID:     testnetNativeContractID,
			SorobanURL:           testnetSorobanURL,
			HorizonURL:           testnetHorizonURL,
			Passphrase:           network.TestNetworkPassphrase,
			DestChainID:          destChainID,
			DestChainName:        "holesky",
			ExplorerTemplate:     "https://holesky.etherscan.io/tx/%s",
			LockExplorerTemplate: "https://stellar.expert/explorer/testnet/tx/%s",
		}
	case "8453":
		return Network{
			Name:                 "mainnet",
			ContractID:           mainnetContractID,
			NativeContractID:     mainnetNativeContractID,
			SorobanURL:           mainnetSorobanURL,
			HorizonURL:           mainnetHorizonURL,
			Passphrase:           network.PublicNetworkPassphrase,
			DestChainID:          destChainID,
			DestChainName:        "base",
			ExplorerTemplate:     "https://basescan.org/tx/%s",
			LockExplorerTemplate: "https://stellar.expert/explorer/public/tx/%s",
		}
	default:
		return Network{
			Name:                 "testnet",
			ContractID:           testnetContractID,
			NativeContractID:     testnetNativeContractID,
			SorobanURL:           testnetSorobanURL,
			HorizonURL:           testnetHorizonURL,
			Passphrase:           network.TestNetworkPassphrase,
			DestChainID:          destChainID,
			LockExplorerTemplate: "https://stellar.expert/explorer/testnet/tx/%s",
		}
	}
}

// ExplorerURL renders the destination-chain explorer link for a hash.
// Without a known explorer the raw hash is returned as a placeholder.
func (n Network) ExplorerURL(hash string) string {
	if n.ExplorerTemplate == "" {
		return hash
	}
	return fmt.Sprintf(n.ExplorerTemplate, hash)
}

// LockExplorerURL renders the source-ledger explorer link for a hash.
func (n Network) LockExplorerURL(hash string) string {
	if n.LockExplorerTemplate == "" {
		return hash
	}
	return fmt.Sprintf(n.LockExplorerTemplate, hash)
}
