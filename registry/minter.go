package registry

import (
	"fmt"

	"github.com/cloudx-io/openmint/core"
)

// MinterFor binds a caller identity to the registry, producing the Mintable
// capability the auction engine consumes. Creation still fails with
// Unauthorized unless the caller has been appointed via SetMinter.
func (r *Registry) MinterFor(caller string) core.Mintable {
	return &boundMinter{registry: r, caller: caller}
}

// boundMinter is the direct-mint capability: Create goes straight to the
// registry under the bound caller's identity.
type boundMinter struct {
	registry *Registry
	caller   string
}

func (m *boundMinter) Create(id uint64, owner string) error {
	return m.registry.create(m.caller, id, owner)
}

func (m *boundMinter) IsIssuanceOpen() bool {
	return m.registry.IsIssuanceOpen()
}

// Policy surface forwarded for snapshots.
func (m *boundMinter) MetadataFrozen() bool { return m.registry.MetadataFrozen() }
func (m *boundMinter) BaseURI() string      { return m.registry.BaseURI() }

// CheckedMinter wraps any Mintable with an issuance-open pre-check, so a
// Create attempted against a paused component fails instead of reaching it.
type CheckedMinter struct {
	inner core.Mintable
}

func NewCheckedMinter(inner core.Mintable) *CheckedMinter {
	return &CheckedMinter{inner: inner}
}

func (m *CheckedMinter) Create(id uint64, owner string) error {
	if !m.inner.IsIssuanceOpen() {
		return fmt.Errorf("issuance is closed, refusing to create token %d", id)
	}
	return m.inner.Create(id, owner)
}

func (m *CheckedMinter) IsIssuanceOpen() bool {
	return m.inner.IsIssuanceOpen()
}

// MetadataFrozen forwards the policy surface when the wrapped component has one.
func (m *CheckedMinter) MetadataFrozen() bool {
	if policy, ok := m.inner.(core.PolicyState); ok {
		return policy.MetadataFrozen()
	}
	return false
}

// BaseURI forwards the policy surface when the wrapped component has one.
func (m *CheckedMinter) BaseURI() string {
	if policy, ok := m.inner.(core.PolicyState); ok {
		return policy.BaseURI()
	}
	return ""
}
