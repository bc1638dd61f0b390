package eth

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

// Finds the first log of the named event and decodes it into a map
func GetTransactionLog(receipt *types.Receipt, contractABI *abi.ABI, name string) (eventMap map[string]interface{}, err error) {
	for _, vLog := range receipt.Logs {
		if len(vLog.Topics) == 0 {
			continue
		}
		event, err := contractABI.EventByID(vLog.Topics[0])
		if err != nil || event.Name != name {
			continue
		}

		eventMap := make(map[string]interface{})
		eventMap["name"] = event.Name
		eventMap["address"] = vLog.Address

		indexed := make([]abi.Argument, 0)
		for _, input := range event.Inputs {
			if input.Indexed {
				indexed = append(indexed, input)
			}
		}
		err = abi.ParseTopicsIntoMap(eventMap, indexed, vLog.Topics[1:])
		if err != nil {
			return nil, err
		}

		if len(vLog.Data) > 0 {
			err = contractABI.UnpackIntoMap(eventMap, event.Name, vLog.Data)
			if err != nil {
				return nil, err
			}
		}
		return eventMap, nil
	}

	return nil, ErrEventNotFound
}
