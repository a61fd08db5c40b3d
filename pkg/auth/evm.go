package auth

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for a wallet address that is not 20 hex-encoded bytes.
var ErrInvalidAddress = errors.New("invalid wallet address")

// ValidateEVMAddress checks if a string is a 0x-prefixed EVM address
func ValidateEVMAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return false
	}
	return common.IsHexAddress(address)
}

// NormalizeAddress returns the EIP-55 checksummed form of address.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !ValidateEVMAddress(address) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(address).Hex(), nil
}
