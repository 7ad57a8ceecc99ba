// Package registry - Baked-in seed chains.
package registry

// DefaultSeed returns the descriptors shipped with the application. Extra
// seed entries can be layered on from configuration; Initialize keeps user
// state authoritative over both.
func DefaultSeed() []Descriptor {
	return []Descriptor{
		{
			LocalID:     "enu-mainnet",
			ChainID:     "cf057bbfb72640471fd910bcb67639c22df9f92470936cddc1ade0e2f2e7dc4f",
			DisplayName: "ENU",
			KeyPrefix:   "ENU",
			RPCNode:     "https://api.enumivo.org",
			SupportedContracts: []string{
				"bidname",
				"customtokens",
				"producerinfo",
				"regproxyinfo",
			},
			Symbol:  "ENU",
			Testnet: false,
		},
	}
}
