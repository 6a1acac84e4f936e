// Package registry is an in-memory token-ownership component: owner and
// balance bookkeeping for a sequentially numbered series, plus the operator
// policy surface (minter role, issuance pause, metadata URI and freeze).
// The auction engine consumes it through the core.Mintable capability.
package registry

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/cloudx-io/openmint/core"
)

// Registry tracks token ownership and operator policy. All methods taking a
// caller enforce the admin or minter role against it.
type Registry struct {
	mu             sync.Mutex
	admin          string
	minter         string
	owners         map[uint64]string
	balances       map[string]int
	issuanceOpen   bool
	metadataFrozen bool
	baseURI        string
	events         *core.EventLog
}

// NewRegistry creates a registry administered by admin. Issuance starts open
// and no minter is set until the admin appoints one.
func NewRegistry(admin string, events *core.EventLog) *Registry {
	return &Registry{
		admin:        admin,
		owners:       make(map[uint64]string),
		balances:     make(map[string]int),
		issuanceOpen: true,
		events:       events,
	}
}

func (r *Registry) requireAdmin(caller string) error {
	if caller != r.admin {
		return fmt.Errorf("%w: %s is not the registry admin", core.ErrUnauthorized, caller)
	}
	return nil
}

// SetMinter appoints the account allowed to create tokens. Admin only.
func (r *Registry) SetMinter(caller, minter string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	r.minter = minter
	r.events.Append(core.Event{Type: core.EventMinterChanged, Value: minter})
	return nil
}

// SetIssuanceOpen toggles whether new tokens may be created. Admin only.
func (r *Registry) SetIssuanceOpen(caller string, open bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	r.issuanceOpen = open
	return nil
}

// SetBaseURI changes the metadata URI prefix. Admin only, rejected once the
// metadata is frozen.
func (r *Registry) SetBaseURI(caller, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if r.metadataFrozen {
		return core.ErrMetadataImmutable
	}
	r.baseURI = uri
	r.events.Append(core.Event{Type: core.EventBaseURIChanged, Value: uri})
	return nil
}

// FreezeMetadata permanently locks the metadata URI. Admin only, one-way.
func (r *Registry) FreezeMetadata(caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if r.metadataFrozen {
		return core.ErrMetadataImmutable
	}
	r.metadataFrozen = true
	r.events.Append(core.Event{Type: core.EventMetadataFrozen})
	return nil
}

func (r *Registry) create(caller string, id uint64, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.minter || r.minter == "" {
		return fmt.Errorf("%w: %s is not the minter", core.ErrUnauthorized, caller)
	}
	if owner == core.NoBidder {
		return fmt.Errorf("token %d needs an owner", id)
	}
	if _, exists := r.owners[id]; exists {
		return fmt.Errorf("token %d already exists", id)
	}
	r.owners[id] = owner
	r.balances[owner]++
	return nil
}

// OwnerOf returns the owner of a token.
func (r *Registry) OwnerOf(id uint64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[id]
	if !ok {
		return "", fmt.Errorf("token %d does not exist", id)
	}
	return owner, nil
}

// BalanceOf returns how many tokens of the series an account owns.
func (r *Registry) BalanceOf(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[owner]
}

// Exists reports whether a token id has been created.
func (r *Registry) Exists(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.owners[id]
	return ok
}

// TokenURI returns the metadata URI for an existing token.
func (r *Registry) TokenURI(id uint64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[id]; !ok {
		return "", fmt.Errorf("token %d does not exist", id)
	}
	return r.baseURI + strconv.FormatUint(id, 10), nil
}

// IsIssuanceOpen reports the operator's issuance policy.
func (r *Registry) IsIssuanceOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issuanceOpen
}

// MetadataFrozen reports whether the metadata URI is locked.
func (r *Registry) MetadataFrozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metadataFrozen
}

// BaseURI returns the current metadata URI prefix.
func (r *Registry) BaseURI() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.baseURI
}

// RestorePolicy overwrites the operator policy surface from a snapshot.
func (r *Registry) RestorePolicy(issuanceOpen, metadataFrozen bool, baseURI string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issuanceOpen = issuanceOpen
	r.metadataFrozen = metadataFrozen
	r.baseURI = baseURI
}
