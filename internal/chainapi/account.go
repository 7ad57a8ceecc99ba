// Package chainapi - On-chain account snapshots.
package chainapi

// KeyWeight pairs a public key with its signing weight.
type KeyWeight struct {
	Key    string
	Weight uint16
}

// Permission is one named authorization level of an account.
type Permission struct {
	Name      string
	Threshold uint32
	Keys      []KeyWeight
}

// AccountSnapshot is a point-in-time copy of an account's on-chain state as
// supplied by the chain RPC collaborator.
type AccountSnapshot struct {
	Name        string
	Permissions []Permission
}

// Permission returns the named authorization, if present.
func (a AccountSnapshot) Permission(name string) (Permission, bool) {
	for _, p := range a.Permissions {
		if p.Name == name {
			return p, true
		}
	}
	return Permission{}, false
}
