package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PerformanceTrackerMetaData contains the PerformanceTracker ABI.
var PerformanceTrackerMetaData = &bind.MetaData{
	ABI: `[
{"inputs":[{"internalType":"address","name":"user","type":"address"},{"internalType":"string","name":"contributionType","type":"string"},{"internalType":"uint256","name":"points","type":"uint256"}],"name":"logContribution","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getUserPoints","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"user","type":"address"},{"indexed":false,"internalType":"string","name":"contributionType","type":"string"},{"indexed":false,"internalType":"uint256","name":"points","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"timestamp","type":"uint256"}],"name":"ContributionLogged","type":"event"}
]`,
}

// PerformanceTracker is a binding around the contribution log contract.
type PerformanceTracker struct {
	contract *bind.BoundContract
}

// NewPerformanceTracker binds the contract deployed at address.
func NewPerformanceTracker(address common.Address, backend bind.ContractBackend) (*PerformanceTracker, error) {
	parsed, err := PerformanceTrackerMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return &PerformanceTracker{contract: bind.NewBoundContract(address, *parsed, backend, backend, backend)}, nil
}

// LogContribution is a paid mutator transaction.
//
// Solidity: function logContribution(address user, string contributionType, uint256 points) returns()
func (p *PerformanceTracker) LogContribution(opts *bind.TransactOpts, user common.Address, contributionType string, points *big.Int) (*types.Transaction, error) {
	return p.contract.Transact(opts, "logContribution", user, contributionType, points)
}

// GetUserPoints is a free data retrieval call.
//
// Solidity: function getUserPoints(address user) view returns(uint256)
func (p *PerformanceTracker) GetUserPoints(opts *bind.CallOpts, user common.Address) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(opts, &out, "getUserPoints", user); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getUserPoints: unexpected output length %d", len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
