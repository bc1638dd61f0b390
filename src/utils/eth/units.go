package eth

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

func WeiToEther(wei *big.Int) float64 {
	ether, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether)).Float64()
	return ether
}

// Parses a positive decimal integer amount, e.g. wei
func ParseAmount(v string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", v)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive: %q", v)
	}
	return amount, nil
}

// Lower case hex with 0x prefix, the form addresses are stored in
func NormalizeAddress(v string) (string, error) {
	if !common.IsHexAddress(v) {
		return "", fmt.Errorf("invalid address: %q", v)
	}
	return strings.ToLower(common.HexToAddress(v).Hex()), nil
}

// Lower case 32 byte hex hash with 0x prefix
func NormalizeHash(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if len(v) != 66 || !strings.HasPrefix(v, "0x") {
		return "", fmt.Errorf("invalid hash: %q", v)
	}
	if _, err := hex.DecodeString(v[2:]); err != nil {
		return "", fmt.Errorf("invalid hash: %q", v)
	}
	return v, nil
}
