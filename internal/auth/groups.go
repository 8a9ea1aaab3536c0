package auth

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// GroupPolicy is the registered configuration of one account group.
type GroupPolicy struct {
	Signers             []GroupSigner
	Threshold           uint32 // required weight for unprivileged operations
	PrivilegedThreshold uint32 // required weight for privileged operations
}

// StaticGroups is a GroupRegistry backed by an in-memory table, for hosts
// that configure their account groups up front.
type StaticGroups struct {
	groups map[[types.IdentityIDSize]byte]GroupPolicy
}

// NewStaticGroups creates an empty registry.
func NewStaticGroups() *StaticGroups {
	return &StaticGroups{groups: make(map[[types.IdentityIDSize]byte]GroupPolicy)}
}

// Register adds or replaces a group's policy.
func (g *StaticGroups) Register(group [types.IdentityIDSize]byte, policy GroupPolicy) {
	g.groups[group] = policy
}

// Signers returns the registered signer set for a group.
func (g *StaticGroups) Signers(group [types.IdentityIDSize]byte) ([]GroupSigner, error) {
	policy, ok := g.groups[group]
	if !ok {
		return nil, fmt.Errorf("unknown account group")
	}
	return policy.Signers, nil
}

// Threshold returns the required weight for the given operation class.
func (g *StaticGroups) Threshold(group [types.IdentityIDSize]byte, privileged bool) (uint32, error) {
	policy, ok := g.groups[group]
	if !ok {
		return 0, fmt.Errorf("unknown account group")
	}
	if privileged {
		return policy.PrivilegedThreshold, nil
	}
	return policy.Threshold, nil
}
