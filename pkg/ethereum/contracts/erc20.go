package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ERC20MetaData contains the read-only subset of the ERC-20 ABI.
var ERC20MetaData = &bind.MetaData{
	ABI: `[
{"inputs":[{"internalType":"address","name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`,
}

// ERC20 is a read-only binding around an ERC-20 token.
type ERC20 struct {
	contract *bind.BoundContract
}

// NewERC20 binds the token deployed at address.
func NewERC20(address common.Address, caller bind.ContractCaller) (*ERC20, error) {
	parsed, err := ERC20MetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return &ERC20{contract: bind.NewBoundContract(address, *parsed, caller, nil, nil)}, nil
}

// BalanceOf is a free data retrieval call.
//
// Solidity: function balanceOf(address owner) view returns(uint256)
func (t *ERC20) BalanceOf(opts *bind.CallOpts, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.contract.Call(opts, &out, "balanceOf", owner); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("balanceOf: unexpected output length %d", len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
