// Package chainapi - Contract code lookups.
package chainapi

import "github.com/ethereum/go-ethereum/common"

// ZeroContractHash is the sentinel reported for accounts with no deployed
// contract code.
var ZeroContractHash = common.Hash{}

// ContractCode is the result of a contract code hash lookup.
type ContractCode struct {
	// Account echoes the account the lookup was issued for.
	Account string
	Hash    common.Hash
}

// HasContract reports whether the account holds deployed contract code.
func (c ContractCode) HasContract() bool {
	return c.Hash != ZeroContractHash
}

// ContractHashLookup fetches the code hash deployed under an account.
type ContractHashLookup interface {
	LookupContractHash(account string, done func(ContractCode))
}
