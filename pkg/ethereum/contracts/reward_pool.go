package contracts

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrNotClaimCall is returned when transaction input is not a claimReward call.
	ErrNotClaimCall = errors.New("transaction is not a claimReward call")
	// ErrNoRewardLog is returned when a transaction emitted no RewardAdded log for the user.
	ErrNoRewardLog = errors.New("transaction has no RewardAdded log for user")
)

// RewardAddedTopic is keccak256("RewardAdded(address,uint256)").
var RewardAddedTopic = crypto.Keccak256Hash([]byte("RewardAdded(address,uint256)"))

// RewardPoolMetaData contains the RewardPool ABI.
var RewardPoolMetaData = &bind.MetaData{
	ABI: `[
{"inputs":[{"internalType":"address","name":"user","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"addReward","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"rewardIndex","type":"uint256"}],"name":"claimReward","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getUserRewards","outputs":[{"components":[{"internalType":"address","name":"user","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"timestamp","type":"uint256"},{"internalType":"bool","name":"claimed","type":"bool"}],"internalType":"struct RewardPool.Reward[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"user","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"RewardAdded","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"user","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"RewardClaimed","type":"event"}
]`,
}

// RewardPoolReward mirrors the RewardPool.Reward struct.
type RewardPoolReward struct {
	User      common.Address
	Amount    *big.Int
	Timestamp *big.Int
	Claimed   bool
}

// RewardPool is a binding around the reward pool contract.
type RewardPool struct {
	contract *bind.BoundContract
}

// NewRewardPool binds the contract deployed at address.
func NewRewardPool(address common.Address, backend bind.ContractBackend) (*RewardPool, error) {
	parsed, err := RewardPoolMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return &RewardPool{contract: bind.NewBoundContract(address, *parsed, backend, backend, backend)}, nil
}

// AddReward is a paid mutator transaction.
//
// Solidity: function addReward(address user, uint256 amount) returns()
func (r *RewardPool) AddReward(opts *bind.TransactOpts, user common.Address, amount *big.Int) (*types.Transaction, error) {
	return r.contract.Transact(opts, "addReward", user, amount)
}

// ClaimReward is a paid mutator transaction.
//
// Solidity: function claimReward(uint256 rewardIndex) returns()
func (r *RewardPool) ClaimReward(opts *bind.TransactOpts, rewardIndex *big.Int) (*types.Transaction, error) {
	return r.contract.Transact(opts, "claimReward", rewardIndex)
}

// GetUserRewards is a free data retrieval call.
//
// Solidity: function getUserRewards(address user) view returns((address,uint256,uint256,bool)[])
func (r *RewardPool) GetUserRewards(opts *bind.CallOpts, user common.Address) ([]RewardPoolReward, error) {
	var out []interface{}
	if err := r.contract.Call(opts, &out, "getUserRewards", user); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getUserRewards: unexpected output length %d", len(out))
	}
	return *abi.ConvertType(out[0], new([]RewardPoolReward)).(*[]RewardPoolReward), nil
}

// UnpackClaimReward decodes the reward index from claimReward call data.
func UnpackClaimReward(input []byte) (*big.Int, error) {
	parsed, err := RewardPoolMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	method := parsed.Methods["claimReward"]
	if len(input) < 4 || !bytes.Equal(input[:4], method.ID) {
		return nil, ErrNotClaimCall
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotClaimCall, err)
	}
	return *abi.ConvertType(args[0], new(*big.Int)).(**big.Int), nil
}

// RewardPosition returns the index in user's pool reward list of the reward
// added by txHash. blockLogs are the pool's logs from the block that mined
// txHash and count is the length of the user's list at that block.
func RewardPosition(blockLogs []types.Log, pool, user common.Address, txHash common.Hash, count int64) (int64, error) {
	userTopic := common.BytesToHash(user.Bytes())

	var added []types.Log
	for _, l := range blockLogs {
		if l.Address != pool || len(l.Topics) != 2 || l.Topics[0] != RewardAddedTopic || l.Topics[1] != userTopic {
			continue
		}
		added = append(added, l)
	}

	own := -1
	for i, l := range added {
		if l.TxHash == txHash {
			own = i
		}
	}
	if own < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoRewardLog, txHash.Hex())
	}

	var later int64
	for _, l := range added {
		if l.Index > added[own].Index {
			later++
		}
	}

	index := count - 1 - later
	if index < 0 {
		return 0, fmt.Errorf("pool holds %d rewards for %s, fewer than logged in block", count, user.Hex())
	}
	return index, nil
}
