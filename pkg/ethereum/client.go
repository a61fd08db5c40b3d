package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/taskchain/taskchain/internal/metrics"
	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/ethereum/contracts"
)

// Operation labels used in logs and metrics.
const (
	OpLogContribution = "log_contribution"
	OpAddReward       = "add_reward"
	OpClaimReward     = "claim_reward"
	OpMintBadge       = "mint_badge"
	OpVerifyClaim     = "verify_claim"
)

type chainReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	FilterLogs(ctx context.Context, q geth.FilterQuery) ([]types.Log, error)
}

// Client talks to the Celo (EVM) contracts backing contributions, rewards and badges.
// Submissions from the signer account are serialized so pending nonces never collide.
type Client struct {
	cfg         *config.ChainConfig
	client      *ethclient.Client
	rpc         chainReader
	chainID     *big.Int
	privateKey  *ecdsa.PrivateKey
	address     common.Address
	maxGasPrice *big.Int
	logger      *zap.Logger

	poolAddress common.Address
	tracker     *contracts.PerformanceTracker
	pool        *contracts.RewardPool
	badges      *contracts.BadgeNFT
	token       *contracts.ERC20

	mu sync.Mutex
}

// NewClient creates a new chain client. Without a signer key the client is read-only.
func NewClient(cfg *config.ChainConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	c := &Client{
		cfg:         cfg,
		client:      client,
		rpc:         client,
		chainID:     big.NewInt(cfg.ChainID),
		logger:      logger,
		poolAddress: common.HexToAddress(cfg.RewardPool),
	}

	if cfg.SignerPrivateKey != "" {
		c.privateKey, err = crypto.HexToECDSA(strings.TrimPrefix(cfg.SignerPrivateKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to load signer key: %w", err)
		}
		c.address = crypto.PubkeyToAddress(c.privateKey.PublicKey)
	}

	if cfg.MaxGasPrice != "" {
		maxGasPrice, ok := new(big.Int).SetString(cfg.MaxGasPrice, 10)
		if !ok {
			client.Close()
			return nil, fmt.Errorf("invalid max gas price %q", cfg.MaxGasPrice)
		}
		c.maxGasPrice = maxGasPrice
	}

	if c.tracker, err = contracts.NewPerformanceTracker(common.HexToAddress(cfg.PerformanceTracker), client); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to load performance tracker contract: %w", err)
	}
	if c.pool, err = contracts.NewRewardPool(c.poolAddress, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to load reward pool contract: %w", err)
	}
	if c.badges, err = contracts.NewBadgeNFT(common.HexToAddress(cfg.BadgeNFT), client); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to load badge contract: %w", err)
	}
	if cfg.RewardToken != "" {
		if c.token, err = contracts.NewERC20(common.HexToAddress(cfg.RewardToken), client); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to load reward token contract: %w", err)
		}
	}

	logger.Info("Connected to chain",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("performance_tracker", cfg.PerformanceTracker),
		zap.String("reward_pool", cfg.RewardPool),
		zap.String("badge_nft", cfg.BadgeNFT),
		zap.Bool("read_only", c.privateKey == nil),
		zap.String("signer_address", c.address.Hex()))

	return c, nil
}

// Close closes the RPC connection
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Address returns the signer address, or the zero address for a read-only client.
func (c *Client) Address() common.Address {
	return c.address
}

// GetTransactor returns a transaction signer with the pending nonce and capped gas price.
// Callers must hold c.mu until the transaction is sent.
func (c *Client) GetTransactor(ctx context.Context) (*bind.TransactOpts, error) {
	if c.privateKey == nil {
		return nil, ErrNoSigner
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	auth.GasLimit = c.cfg.GasLimit

	if c.maxGasPrice != nil {
		gasPrice, err := c.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}

		if gasPrice.Cmp(c.maxGasPrice) > 0 {
			c.logger.Warn("Suggested gas price exceeds maximum",
				zap.String("suggested", gasPrice.String()),
				zap.String("max", c.maxGasPrice.String()))
			auth.GasPrice = c.maxGasPrice
		} else {
			auth.GasPrice = gasPrice
		}
	}

	return auth, nil
}

func (c *Client) submit(ctx context.Context, op string, send func(*bind.TransactOpts) (*types.Transaction, error)) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	auth, err := c.GetTransactor(ctx)
	if err != nil {
		metrics.ChainSubmissions.WithLabelValues(op, "failed").Inc()
		if errors.Is(err, ErrNoSigner) {
			return common.Hash{}, err
		}
		return common.Hash{}, fmt.Errorf("%w: %v", ErrExternalLedgerUnavailable, err)
	}

	tx, err := send(auth)
	if err != nil {
		metrics.ChainSubmissions.WithLabelValues(op, "failed").Inc()
		return common.Hash{}, fmt.Errorf("%w: failed to submit %s: %v", ErrExternalLedgerUnavailable, op, err)
	}

	metrics.ChainSubmissions.WithLabelValues(op, "submitted").Inc()
	c.logger.Info("Transaction submitted",
		zap.String("operation", op),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()))

	return tx.Hash(), nil
}

// LogContribution submits logContribution(user, kind, points).
func (c *Client) LogContribution(ctx context.Context, user common.Address, kind string, points int) (common.Hash, error) {
	return c.submit(ctx, OpLogContribution, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.tracker.LogContribution(opts, user, kind, big.NewInt(int64(points)))
	})
}

// AddReward submits addReward(user, amount) with amount converted to token base units.
func (c *Client) AddReward(ctx context.Context, user common.Address, amount decimal.Decimal) (common.Hash, error) {
	units, err := ToBaseUnits(amount, c.cfg.TokenDecimals)
	if err != nil {
		return common.Hash{}, err
	}
	return c.submit(ctx, OpAddReward, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.pool.AddReward(opts, user, units)
	})
}

// ClaimReward submits claimReward(index) from the signer account.
func (c *Client) ClaimReward(ctx context.Context, index int64) (common.Hash, error) {
	return c.submit(ctx, OpClaimReward, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.pool.ClaimReward(opts, big.NewInt(index))
	})
}

// MintBadge submits mintBadge(to, name, description, milestone).
func (c *Client) MintBadge(ctx context.Context, to common.Address, name, description, milestone string) (common.Hash, error) {
	return c.submit(ctx, OpMintBadge, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.badges.MintBadge(opts, to, name, description, milestone)
	})
}

// MintedTokenID extracts the badge token id minted to `to` from a mint receipt.
func (c *Client) MintedTokenID(receipt *types.Receipt, to common.Address) (*big.Int, error) {
	return c.badges.MintedTokenID(receipt, to)
}

// WaitForReceipt polls for the receipt of hash until it is mined or the
// confirmation timeout elapses. A reverted receipt is returned with ErrTxReverted.
func (c *Client) WaitForReceipt(ctx context.Context, op string, hash common.Hash) (*types.Receipt, error) {
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmationTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.PollInterval
	b.MaxInterval = 4 * c.cfg.PollInterval
	b.MaxElapsedTime = 0

	receipt, err := backoff.RetryWithData(func() (*types.Receipt, error) {
		r, err := c.rpc.TransactionReceipt(waitCtx, hash)
		if err != nil {
			if !errors.Is(err, geth.NotFound) {
				c.logger.Debug("Receipt lookup failed, retrying",
					zap.String("tx_hash", hash.Hex()), zap.Error(err))
			}
			return nil, err
		}
		return r, nil
	}, backoff.WithContext(b, waitCtx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.ChainSubmissions.WithLabelValues(op, "timeout").Inc()
		c.logger.Warn("Timed out waiting for transaction",
			zap.String("operation", op),
			zap.String("tx_hash", hash.Hex()),
			zap.Duration("timeout", c.cfg.ConfirmationTimeout))
		return nil, fmt.Errorf("%w: %s", ErrReconciliationTimeout, hash.Hex())
	}

	metrics.ChainConfirmationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.ChainSubmissions.WithLabelValues(op, "reverted").Inc()
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, hash.Hex())
	}

	metrics.ChainSubmissions.WithLabelValues(op, "confirmed").Inc()
	c.logger.Info("Transaction confirmed",
		zap.String("operation", op),
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Duration("duration", time.Since(start)))

	return receipt, nil
}

// TxState reports what the node knows about a previously submitted hash.
func (c *Client) TxState(ctx context.Context, hash common.Hash) (TxState, error) {
	receipt, err := c.rpc.TransactionReceipt(ctx, hash)
	switch {
	case err == nil && receipt.Status == types.ReceiptStatusSuccessful:
		return TxStateConfirmed, nil
	case err == nil:
		return TxStateReverted, nil
	case !errors.Is(err, geth.NotFound):
		return TxStateUnknown, fmt.Errorf("%w: %v", ErrExternalLedgerUnavailable, err)
	}

	_, _, err = c.rpc.TransactionByHash(ctx, hash)
	switch {
	case err == nil:
		return TxStatePending, nil
	case errors.Is(err, geth.NotFound):
		return TxStateUnknown, nil
	default:
		return TxStateUnknown, fmt.Errorf("%w: %v", ErrExternalLedgerUnavailable, err)
	}
}

// VerifyClaim confirms that hash is a successful claimReward(index) call sent by
// wallet to the reward pool.
func (c *Client) VerifyClaim(ctx context.Context, hash common.Hash, wallet common.Address, index int64) error {
	if _, err := c.WaitForReceipt(ctx, OpVerifyClaim, hash); err != nil {
		return err
	}

	tx, _, err := c.rpc.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, geth.NotFound) {
			return fmt.Errorf("%w: %s", ErrTxNotFound, hash.Hex())
		}
		return fmt.Errorf("%w: %v", ErrExternalLedgerUnavailable, err)
	}

	if tx.To() == nil || *tx.To() != c.poolAddress {
		return fmt.Errorf("%w: not sent to the reward pool", ErrClaimMismatch)
	}
	got, err := contracts.UnpackClaimReward(tx.Data())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClaimMismatch, err)
	}
	if !got.IsInt64() || got.Int64() != index {
		return fmt.Errorf("%w: claims index %s, expected %d", ErrClaimMismatch, got, index)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClaimMismatch, err)
	}
	if sender != wallet {
		return fmt.Errorf("%w: sent by %s", ErrClaimMismatch, sender.Hex())
	}
	return nil
}

// RewardIndex returns the position in user's pool reward list of the reward
// added by the confirmed addReward receipt.
func (c *Client) RewardIndex(ctx context.Context, receipt *types.Receipt, user common.Address) (int64, error) {
	rewards, err := c.pool.GetUserRewards(&bind.CallOpts{Context: ctx, BlockNumber: receipt.BlockNumber}, user)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExternalLedgerUnavailable, err)
	}

	blockHash := receipt.BlockHash
	logs, err := c.rpc.FilterLogs(ctx, geth.FilterQuery{
		BlockHash: &blockHash,
		Addresses: []common.Address{c.poolAddress},
		Topics:    [][]common.Hash{{contracts.RewardAddedTopic}, {common.BytesToHash(user.Bytes())}},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExternalLedgerUnavailable, err)
	}

	index, err := contracts.RewardPosition(logs, c.poolAddress, user, receipt.TxHash, int64(len(rewards)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRewardIndex, err)
	}
	return index, nil
}

// BalanceOf returns the wallet's reward token balance, or its native balance
// when no reward token is configured.
func (c *Client) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	owner, err := ParseAddress(address)
	if err != nil {
		return decimal.Zero, err
	}

	var units *big.Int
	if c.token != nil {
		units, err = c.token.BalanceOf(&bind.CallOpts{Context: ctx}, owner)
	} else {
		units, err = c.client.BalanceAt(ctx, owner, nil)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrExternalLedgerUnavailable, err)
	}
	return FromBaseUnits(units, c.cfg.TokenDecimals), nil
}
