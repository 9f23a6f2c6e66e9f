// Package stellar submits contract invocations to Soroban RPC with the Stellar SDK.
package stellar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stellar/go-stellar-sdk/clients/rpcclient"
	protocol "github.com/stellar/go-stellar-sdk/protocols/rpc"
	"github.com/stellar/go-stellar-sdk/txnbuild"
	"github.com/stellar/go-stellar-sdk/xdr"

	"github.com/stellarpass/stellarpass/internal/contract"
)

// RPC is the subset of the Soroban RPC client the submitter drives.
type RPC interface {
	LoadAccount(ctx context.Context, address string) (txnbuild.Account, error)
	SimulateTransaction(ctx context.Context, req protocol.SimulateTransactionRequest) (protocol.SimulateTransactionResponse, error)
	SendTransaction(ctx context.Context, req protocol.SendTransactionRequest) (protocol.SendTransactionResponse, error)
}

// Config configures a Submitter.
type Config struct {
	NetworkPassphrase string
	// SkipPrepare sends transactions without simulating them first. The network
	// rejects unprepared Soroban transactions, so this only suits tests.
	SkipPrepare bool
	Logger      *slog.Logger
}

// Submitter implements contract.Submitter over Soroban RPC.
type Submitter struct {
	rpc        RPC
	passphrase string
	prepare    bool
	logger     *slog.Logger
}

var _ contract.Submitter = (*Submitter)(nil)

// NewRPCClient dials Soroban RPC at url.
func NewRPCClient(url string) *rpcclient.Client {
	return rpcclient.NewClient(url, &http.Client{Timeout: 60 * time.Second})
}

// NewSubmitter builds a submitter over rpc.
func NewSubmitter(rpc RPC, cfg Config) (*Submitter, error) {
	if rpc == nil {
		return nil, errors.New("soroban RPC client is required")
	}
	if cfg.NetworkPassphrase == "" {
		return nil, errors.New("network passphrase is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Submitter{rpc: rpc, passphrase: cfg.NetworkPassphrase, prepare: !cfg.SkipPrepare, logger: cfg.Logger}, nil
}

// Submit loads the signer's account, builds the invocation, prepares it, signs it and
// sends it once. The send response is returned without polling.
func (s *Submitter) Submit(ctx context.Context, req contract.TransactionRequest, signer contract.Signer) (contract.Receipt, error) {
	account, err := s.rpc.LoadAccount(ctx, signer.Address())
	if err != nil {
		return contract.Receipt{}, fmt.Errorf("load account %s: %w", signer.Address(), err)
	}
	seq, err := account.GetSequenceNumber()
	if err != nil {
		return contract.Receipt{}, fmt.Errorf("read sequence: %w", err)
	}

	invoke, err := invocation(req)
	if err != nil {
		return contract.Receipt{}, err
	}
	fee := req.BaseFee

	if s.prepare {
		tx, err := build(signer.Address(), seq, invoke, fee, req.Timeout)
		if err != nil {
			return contract.Receipt{}, err
		}
		sim, err := s.simulate(ctx, tx)
		if err != nil {
			return contract.Receipt{}, err
		}
		if err := attach(invoke, sim); err != nil {
			return contract.Receipt{}, err
		}
		fee += sim.MinResourceFee
	}

	tx, err := build(signer.Address(), seq, invoke, fee, req.Timeout)
	if err != nil {
		return contract.Receipt{}, err
	}
	hash, err := tx.Hash(s.passphrase)
	if err != nil {
		return contract.Receipt{}, fmt.Errorf("hash transaction: %w", err)
	}
	sig, err := signer.SignDecorated(hash[:])
	if err != nil {
		return contract.Receipt{}, fmt.Errorf("sign transaction: %w", err)
	}
	if tx, err = tx.AddSignatureDecorated(sig); err != nil {
		return contract.Receipt{}, fmt.Errorf("attach signature: %w", err)
	}
	envelope, err := tx.Base64()
	if err != nil {
		return contract.Receipt{}, fmt.Errorf("encode transaction: %w", err)
	}

	resp, err := s.rpc.SendTransaction(ctx, protocol.SendTransactionRequest{Transaction: envelope})
	if err != nil {
		return contract.Receipt{}, fmt.Errorf("send transaction: %w", err)
	}
	s.logger.Debug("transaction sent", "function", req.Function, "hash", resp.Hash, "status", resp.Status)
	return contract.Receipt{
		Hash:           resp.Hash,
		Status:         resp.Status,
		LatestLedger:   resp.LatestLedger,
		ErrorResultXDR: resp.ErrorResultXDR,
	}, nil
}

// Simulate runs a read-only call from the placeholder account and decodes its return value.
func (s *Submitter) Simulate(ctx context.Context, req contract.TransactionRequest) (contract.Simulation, error) {
	invoke, err := invocation(req)
	if err != nil {
		return contract.Simulation{}, err
	}
	tx, err := build(contract.PlaceholderAccount, 0, invoke, req.BaseFee, req.Timeout)
	if err != nil {
		return contract.Simulation{}, err
	}
	sim, err := s.simulate(ctx, tx)
	if err != nil {
		return contract.Simulation{}, err
	}

	out := contract.Simulation{LatestLedger: sim.LatestLedger, MinResourceFee: sim.MinResourceFee}
	if len(sim.Results) == 0 || sim.Results[0].ReturnValueXDR == nil {
		return out, nil
	}
	var ret xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(*sim.Results[0].ReturnValueXDR, &ret); err != nil {
		return contract.Simulation{}, fmt.Errorf("decode return value: %w", err)
	}
	if out.Result, err = ToNative(ret); err != nil {
		return contract.Simulation{}, fmt.Errorf("convert return value: %w", err)
	}
	return out, nil
}

func (s *Submitter) simulate(ctx context.Context, tx *txnbuild.Transaction) (protocol.SimulateTransactionResponse, error) {
	envelope, err := tx.Base64()
	if err != nil {
		return protocol.SimulateTransactionResponse{}, fmt.Errorf("encode transaction: %w", err)
	}
	resp, err := s.rpc.SimulateTransaction(ctx, protocol.SimulateTransactionRequest{Transaction: envelope})
	if err != nil {
		return protocol.SimulateTransactionResponse{}, fmt.Errorf("simulate transaction: %w", err)
	}
	if resp.Error != "" {
		return protocol.SimulateTransactionResponse{}, fmt.Errorf("simulation failed: %s", resp.Error)
	}
	return resp, nil
}

func invocation(req contract.TransactionRequest) (*txnbuild.InvokeHostFunction, error) {
	addr, err := ScAddress(req.ContractID)
	if err != nil {
		return nil, fmt.Errorf("contract id: %w", err)
	}
	args := make(xdr.ScVec, 0, len(req.Args))
	for i, a := range req.Args {
		v, err := ToScVal(a)
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", req.Function, i, err)
		}
		args = append(args, v)
	}
	return &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: addr,
				FunctionName:    xdr.ScSymbol(req.Function),
				Args:            args,
			},
		},
	}, nil
}

// attach copies the footprint, resources and authorization entries from a simulation.
func attach(invoke *txnbuild.InvokeHostFunction, sim protocol.SimulateTransactionResponse) error {
	var data xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(sim.TransactionDataXDR, &data); err != nil {
		return fmt.Errorf("decode soroban data: %w", err)
	}
	invoke.Ext = xdr.TransactionExt{V: 1, SorobanData: &data}

	invoke.Auth = nil
	if len(sim.Results) > 0 && sim.Results[0].AuthXDR != nil {
		for _, raw := range *sim.Results[0].AuthXDR {
			var entry xdr.SorobanAuthorizationEntry
			if err := xdr.SafeUnmarshalBase64(raw, &entry); err != nil {
				return fmt.Errorf("decode auth entry: %w", err)
			}
			invoke.Auth = append(invoke.Auth, entry)
		}
	}
	return nil
}

// build assembles a one-operation transaction at sequence seq+1.
func build(source string, seq int64, invoke *txnbuild.InvokeHostFunction, fee int64, timeout time.Duration) (*txnbuild.Transaction, error) {
	if fee <= 0 {
		fee = contract.DefaultBaseFee
	}
	if timeout <= 0 {
		timeout = contract.DefaultTimeout
	}
	account := txnbuild.NewSimpleAccount(source, seq)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &account,
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{invoke},
		BaseFee:              fee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(int64(timeout / time.Second))},
	})
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	return tx, nil
}
