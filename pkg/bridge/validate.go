package bridge

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Static whitelist of what the bridge can move. The source side supports
// exactly one native asset; each destination token maps 1:1 to a chain.
var (
	supportedSourceTokens = map[string]bool{
		"XLM": true,
	}

	// destination token -> required destination chain id
	supportedDestTokens = map[string]string{
		"HOLSKEY":  "17000",
		"BASE_ETH": "8453",
	}

	supportedDestChains = map[string]bool{
		"17000": true,
		"8453":  true,
	}
)

// Validate checks a request against the static whitelist. Checks run in
// a fixed order and stop at the first violation; no network call is made
// here. Returns nil when the request is acceptable.
func Validate(req Request) *Error {
	fail := func(msg string) *Error {
		return newError(KindValidation, StageValidating, "", msg, nil)
	}

	if req.UserAddress == "" {
		return fail("user address is required")
	}
	if !supportedSourceTokens[req.FromToken] {
		return fail(fmt.Sprintf("unsupported source token %q, only XLM is supported", req.FromToken))
	}
	requiredChain, ok := supportedDestTokens[req.DestToken]
	if !ok {
		return fail(fmt.Sprintf("unsupported destination token %q", req.DestToken))
	}
	if !req.Amount.IsPositive() {
		return fail("amount must be greater than zero")
	}
	if !supportedDestChains[req.DestChain] {
		return fail(fmt.Sprintf("unsupported destination chain %q", req.DestChain))
	}
	if req.DestChain != requiredChain {
		return fail(fmt.Sprintf("destination token %q is not available on chain %s", req.DestToken, req.DestChain))
	}
	if req.RecipientAddress == "" {
		return fail("recipient address is required")
	}
	// Both supported chains are EVM-family.
	if !common.IsHexAddress(req.RecipientAddress) {
		return fail(fmt.Sprintf("recipient %q is not a valid EVM address", req.RecipientAddress))
	}
	return nil
}
