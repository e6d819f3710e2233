package stellar

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
	"go.uber.org/zap"

	"github.com/koshlabs/stellar-evm-bridge/pkg/config"
)

// stroopsExponent converts lumens to stroops, the ledger's integer
// amount unit.
const stroopsExponent = 7

// Builder assembles and simulates lock contract invocations. Every
// build uses a fresh account snapshot; the resulting envelope embeds a
// single-use sequence number and is never reused across attempts.
type Builder struct {
	baseFee    int64
	txValidity time.Duration
	logger     *zap.Logger
	dial       func(url string) RPCClient
}

// NewBuilder creates a Builder from bridge configuration.
func NewBuilder(cfg *config.BridgeConfig, logger *zap.Logger) *Builder {
	sorobanTimeout := cfg.SorobanTimeout
	return &Builder{
		baseFee:    cfg.BaseFee,
		txValidity: cfg.TxValidity,
		logger:     logger,
		dial: func(url string) RPCClient {
			return NewSorobanClient(url, sorobanTimeout)
		},
	}
}

// Build constructs the unsigned lock invocation for the given params,
// simulates it against the network's Soroban RPC, and returns the
// envelope with resource footprint and fee applied.
func (b *Builder) Build(ctx context.Context, net Network, params LockParams, account *AccountSnapshot) (*LockTransaction, error) {
	args, err := b.lockArgs(net, params)
	if err != nil {
		return nil, err
	}

	contractAddr, err := contractScAddress(net.ContractID)
	if err != nil {
		return nil, err
	}

	op := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: contractAddr,
				FunctionName:    xdr.ScSymbol("lock"),
				Args:            args,
			},
		},
		SourceAccount: params.Source,
	}

	envelope, err := b.assemble(params.Source, account.Sequence, op, b.baseFee)
	if err != nil {
		return nil, fmt.Errorf("serialize lock transaction: %w", err)
	}

	b.logger.Debug("Simulating lock transaction",
		zap.String("network", net.Name),
		zap.String("contract", net.ContractID),
		zap.Int64("sequence", account.Sequence))

	sim, err := b.dial(net.SorobanURL).SimulateTransaction(ctx, envelope)
	if err != nil {
		return nil, err
	}

	prepared, err := b.applySimulation(params.Source, account.Sequence, op, sim)
	if err != nil {
		return nil, err
	}

	return &LockTransaction{
		XDR:            prepared,
		ContractID:     net.ContractID,
		Passphrase:     net.Passphrase,
		SourceSequence: account.Sequence + 1,
	}, nil
}

// lockArgs builds the contract arguments in the order the lock entry
// point declares them: source account, source token contract,
// destination token symbol, amount, chain id bytes, recipient.
func (b *Builder) lockArgs(net Network, params LockParams) ([]xdr.ScVal, error) {
	from, err := accountScAddress(params.Source)
	if err != nil {
		return nil, err
	}
	fromToken, err := contractScAddress(net.NativeContractID)
	if err != nil {
		return nil, err
	}
	amount, err := ToStroops(params.Amount)
	if err != nil {
		return nil, err
	}
	chainBytes := ChainIDBytes(params.DestChainID)

	destToken := xdr.ScString(params.DestToken)
	recipient := xdr.ScString(params.Recipient)
	chainScBytes := xdr.ScBytes(chainBytes)

	return []xdr.ScVal{
		{Type: xdr.ScValTypeScvAddress, Address: &from},
		{Type: xdr.ScValTypeScvAddress, Address: &fromToken},
		{Type: xdr.ScValTypeScvString, Str: &destToken},
		{Type: xdr.ScValTypeScvI128, I128: &amount},
		{Type: xdr.ScValTypeScvBytes, Bytes: &chainScBytes},
		{Type: xdr.ScValTypeScvString, Str: &recipient},
	}, nil
}

// assemble wraps the operation in a time-bounded envelope built from a
// fresh sequence number and returns its base64 XDR.
func (b *Builder) assemble(source string, sequence int64, op *txnbuild.InvokeHostFunction, fee int64) (string, error) {
	sourceAccount := txnbuild.NewSimpleAccount(source, sequence)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &sourceAccount,
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              fee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(b.txValidity.Seconds())),
		},
	})
	if err != nil {
		return "", err
	}
	return tx.Base64()
}

// applySimulation folds the simulation's resource footprint, auth
// entries and minimum resource fee back into the envelope.
func (b *Builder) applySimulation(source string, sequence int64, op *txnbuild.InvokeHostFunction, sim *SimulationResult) (string, error) {
	var sorobanData xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(sim.TransactionData, &sorobanData); err != nil {
		return "", fmt.Errorf("decode simulation transaction data: %w", err)
	}
	op.Ext = xdr.TransactionExt{V: 1, SorobanData: &sorobanData}

	var auth []xdr.SorobanAuthorizationEntry
	for _, result := range sim.Results {
		for _, entry := range result.Auth {
			var decoded xdr.SorobanAuthorizationEntry
			if err := xdr.SafeUnmarshalBase64(entry, &decoded); err != nil {
				return "", fmt.Errorf("decode simulation auth entry: %w", err)
			}
			auth = append(auth, decoded)
		}
	}
	op.Auth = auth

	minResourceFee, err := strconv.ParseInt(sim.MinResourceFee, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse simulation resource fee %q: %w", sim.MinResourceFee, err)
	}

	return b.assemble(source, sequence, op, b.baseFee+minResourceFee)
}

// ToStroops converts a lumen amount to the i128 stroop representation
// used on the wire. Fractions below one stroop are rejected rather than
// silently truncated.
func ToStroops(amount decimal.Decimal) (xdr.Int128Parts, error) {
	stroops := amount.Shift(stroopsExponent)
	if !stroops.IsInteger() {
		return xdr.Int128Parts{}, fmt.Errorf("amount %s has sub-stroop precision", amount)
	}
	if stroops.IsNegative() {
		return xdr.Int128Parts{}, fmt.Errorf("amount %s is negative", amount)
	}

	bi := stroops.BigInt()
	var mask big.Int
	mask.SetUint64(^uint64(0))

	var lo, hi big.Int
	lo.And(bi, &mask)
	hi.Rsh(bi, 64)
	if !hi.IsUint64() {
		return xdr.Int128Parts{}, fmt.Errorf("amount %s overflows i128", amount)
	}

	return xdr.Int128Parts{
		Hi: xdr.Int64(hi.Uint64()),
		Lo: xdr.Uint64(lo.Uint64()),
	}, nil
}

// ChainIDBytes encodes a destination chain id for the contract call.
// Valid hex strings are decoded to their byte value; anything else
// falls back to the raw UTF-8 bytes. "8453" is valid hex (0x84 0x53)
// while "17000" has odd length and takes the fallback.
func ChainIDBytes(chainID string) []byte {
	if decoded, err := hex.DecodeString(chainID); err == nil {
		return decoded
	}
	return []byte(chainID)
}

func accountScAddress(address string) (xdr.ScAddress, error) {
	if !strkey.IsValidEd25519PublicKey(address) {
		return xdr.ScAddress{}, fmt.Errorf("%w: %q is not a Stellar account", ErrInvalidAddress, address)
	}
	accountID, err := xdr.AddressToAccountId(address)
	if err != nil {
		return xdr.ScAddress{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return xdr.ScAddress{
		Type:      xdr.ScAddressTypeScAddressTypeAccount,
		AccountId: &accountID,
	}, nil
}

func contractScAddress(id string) (xdr.ScAddress, error) {
	raw, err := strkey.Decode(strkey.VersionByteContract, id)
	if err != nil {
		return xdr.ScAddress{}, fmt.Errorf("%w: %q is not a contract id", ErrInvalidAddress, id)
	}
	var contractID xdr.ContractId
	copy(contractID[:], raw)
	return xdr.ScAddress{
		Type:       xdr.ScAddressTypeScAddressTypeContract,
		ContractId: &contractID,
	}, nil
}
