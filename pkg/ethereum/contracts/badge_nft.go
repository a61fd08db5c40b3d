package contracts

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoMintLog is returned when a receipt carries no ERC-721 mint Transfer log.
var ErrNoMintLog = errors.New("receipt has no badge mint transfer log")

// transferTopic is keccak256("Transfer(address,address,uint256)").
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// BadgeNFTMetaData contains the BadgeNFT ABI.
var BadgeNFTMetaData = &bind.MetaData{
	ABI: `[
{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"string","name":"name","type":"string"},{"internalType":"string","name":"description","type":"string"},{"internalType":"string","name":"milestone","type":"string"}],"name":"mintBadge","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":true,"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"Transfer","type":"event"}
]`,
}

// BadgeNFT is a binding around the badge ERC-721 contract.
type BadgeNFT struct {
	contract *bind.BoundContract
	address  common.Address
}

// NewBadgeNFT binds the contract deployed at address.
func NewBadgeNFT(address common.Address, backend bind.ContractBackend) (*BadgeNFT, error) {
	parsed, err := BadgeNFTMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return &BadgeNFT{
		contract: bind.NewBoundContract(address, *parsed, backend, backend, backend),
		address:  address,
	}, nil
}

// MintBadge is a paid mutator transaction.
//
// Solidity: function mintBadge(address to, string name, string description, string milestone) returns()
func (b *BadgeNFT) MintBadge(opts *bind.TransactOpts, to common.Address, name, description, milestone string) (*types.Transaction, error) {
	return b.contract.Transact(opts, "mintBadge", to, name, description, milestone)
}

// MintedTokenID returns the token id of the mint Transfer (from the zero
// address to `to`) emitted by this contract in receipt.
func (b *BadgeNFT) MintedTokenID(receipt *types.Receipt, to common.Address) (*big.Int, error) {
	return MintedTokenID(receipt, b.address, to)
}

// MintedTokenID scans receipt logs emitted by contract for an ERC-721 mint to `to`.
func MintedTokenID(receipt *types.Receipt, contract, to common.Address) (*big.Int, error) {
	for _, l := range receipt.Logs {
		if l.Address != contract || len(l.Topics) != 4 || l.Topics[0] != transferTopic {
			continue
		}
		if common.BytesToAddress(l.Topics[1].Bytes()) != (common.Address{}) {
			continue
		}
		if common.BytesToAddress(l.Topics[2].Bytes()) != to {
			continue
		}
		return l.Topics[3].Big(), nil
	}
	return nil, ErrNoMintLog
}
