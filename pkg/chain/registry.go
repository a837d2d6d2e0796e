package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// registryABI is the subset of the certificate registry contract the portal calls.
const registryABI = `[
  {
    "inputs": [{"internalType": "address", "name": "", "type": "address"}],
    "name": "organizations",
    "outputs": [
      {"internalType": "string", "name": "name", "type": "string"},
      {"internalType": "bool", "name": "isRegistered", "type": "bool"},
      {"internalType": "uint256", "name": "issuanceFee", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

func parseRegistryABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse registry abi: %w", err)
	}
	return parsed, nil
}

func packOrganizationsCall(parsed abi.ABI, address string) ([]byte, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	return parsed.Pack("organizations", common.HexToAddress(address))
}

func unpackOrganization(parsed abi.ABI, out []byte) (*OrganizationRecord, error) {
	var rec OrganizationRecord
	if err := parsed.UnpackIntoInterface(&rec, "organizations", out); err != nil {
		return nil, fmt.Errorf("unpack organizations: %w", err)
	}
	return &rec, nil
}
