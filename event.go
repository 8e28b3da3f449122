package rolesync

import (
	"context"
	"sync"

	"github.com/uptrace/bun"
)

// MutationOp identifies the row-level operation a mutation describes.
type MutationOp string

const (
	OpInsert MutationOp = "insert"
	OpUpdate MutationOp = "update"
)

// Relation names the relations reactions may attach to.
type Relation string

const (
	RelationIdentities Relation = "identities"
	RelationProfiles   Relation = "profiles"
)

// Mutation describes a committed-in-flight row change. Reactions receive it
// inside the same transaction that performs the change, so anything they
// write lands in the same commit.
type Mutation struct {
	Op       MutationOp
	Relation Relation
	// Identity is the new identity row for mutations on RelationIdentities.
	Identity *Identity
	// Profile is the new profile row for mutations on RelationProfiles.
	Profile *Profile
	// OldProfile is the previous profile row, set only for OpUpdate.
	OldProfile *Profile
}

// Reaction is logic that runs synchronously in response to a row mutation.
type Reaction interface {
	// Name identifies the reaction in errors and activity events.
	Name() string
	// When is the firing guard. The dispatcher evaluates it before Handle;
	// a false return suppresses the reaction entirely for that mutation.
	When(m Mutation) bool
	// Handle runs inside the triggering transaction. An error aborts the
	// entire enclosing transaction, original mutation included.
	Handle(ctx context.Context, tx bun.IDB, m Mutation) error
}

// Dispatcher fans a mutation out to installed reactions, in install order,
// within the caller's transaction. Install and Remove are the reversible
// deployment surface: they attach and detach reactions without touching data.
type Dispatcher struct {
	mu        sync.RWMutex
	reactions []Reaction
}

func NewDispatcher(reactions ...Reaction) *Dispatcher {
	d := &Dispatcher{}
	for _, r := range reactions {
		d.Install(r)
	}
	return d
}

// Install attaches a reaction. Installing a reaction with a name already
// present replaces the previous one in place.
func (d *Dispatcher) Install(r Reaction) {
	if r == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, existing := range d.reactions {
		if existing.Name() == r.Name() {
			d.reactions[i] = r
			return
		}
	}
	d.reactions = append(d.reactions, r)
}

// Remove detaches the named reaction. Existing data is left intact.
func (d *Dispatcher) Remove(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, r := range d.reactions {
		if r.Name() == name {
			d.reactions = append(d.reactions[:i], d.reactions[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether a reaction with the given name is attached.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, r := range d.reactions {
		if r.Name() == name {
			return true
		}
	}
	return false
}

// Installed lists the names of attached reactions in dispatch order.
func (d *Dispatcher) Installed() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.reactions))
	for _, r := range d.reactions {
		names = append(names, r.Name())
	}
	return names
}

// Dispatch runs every installed reaction whose guard accepts the mutation.
// The first failure propagates and must abort the caller's transaction.
func (d *Dispatcher) Dispatch(ctx context.Context, tx bun.IDB, m Mutation) error {
	d.mu.RLock()
	reactions := make([]Reaction, len(d.reactions))
	copy(reactions, d.reactions)
	d.mu.RUnlock()

	for _, r := range reactions {
		if !r.When(m) {
			continue
		}
		if err := r.Handle(ctx, tx, m); err != nil {
			return err
		}
	}
	return nil
}
