// Package docstore is the entry point to remote document storage. It
// re-exports the core contract and opens drivers from configuration.
package docstore

import (
	"carecore/internal/docstore/core"
	"carecore/pkg/domain"
)

type (
	// Driver identifies a backend.
	Driver = core.Driver
	// Collection names a document collection.
	Collection = core.Collection
	// Filter is an equality match on an owner id field.
	Filter = core.Filter
	// Store is the document store contract.
	Store = core.Store
)

const (
	DriverMemory   = core.DriverMemory
	DriverSQLite   = core.DriverSQLite
	DriverPostgres = core.DriverPostgres
	DriverRedis    = core.DriverRedis

	Recipients        = core.Recipients
	Collections       = core.Collections
	Sets              = core.Sets
	EmergencyContacts = core.EmergencyContacts
)

// ErrNotFound reports a missing document.
var ErrNotFound = core.ErrNotFound

var entityCollections = map[domain.EntityType]Collection{
	domain.EntityRecipient:  Recipients,
	domain.EntityCollection: Collections,
	domain.EntitySet:        Sets,
	domain.EntityContact:    EmergencyContacts,
}

// CollectionFor returns the document collection holding entity.
func CollectionFor(entity domain.EntityType) (Collection, bool) {
	c, ok := entityCollections[entity]
	return c, ok
}
