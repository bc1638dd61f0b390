package eth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/warp-contracts/marketplace/src/utils/eth/abis"
)

type Contract int

const (
	Escrow Contract = iota
	Factory
	RewardDistributor
	Token
)

func (self Contract) String() string {
	switch self {
	case Escrow:
		return "escrow"
	case Factory:
		return "factory"
	case RewardDistributor:
		return "reward_distributor"
	case Token:
		return "token"
	}
	return ""
}

func (self Contract) file() string {
	switch self {
	case Token:
		return "erc20.json"
	default:
		return self.String() + ".json"
	}
}

var (
	abiOnce   sync.Once
	abiCache  map[Contract]*abi.ABI
	abiLoaded error
)

func loadABIs() {
	abiCache = make(map[Contract]*abi.ABI)
	for _, c := range []Contract{Escrow, Factory, RewardDistributor, Token} {
		data, err := abis.FS.ReadFile(c.file())
		if err != nil {
			abiLoaded = err
			return
		}
		parsed, err := abi.JSON(strings.NewReader(string(data)))
		if err != nil {
			abiLoaded = fmt.Errorf("failed to parse %s abi: %w", c, err)
			return
		}
		abiCache[c] = &parsed
	}
}

// Parsed ABI of the contract. ABIs are embedded, so an error here is a build problem.
func (self Contract) ABI() *abi.ABI {
	abiOnce.Do(loadABIs)
	if abiLoaded != nil {
		panic(abiLoaded)
	}
	return abiCache[self]
}
