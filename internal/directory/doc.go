// Package directory implements the service directory's core: existence guards
// and the operations built from them.
//
// # Guards
//
// Every mutation performs its guard first, inside the same store transaction:
//
//   - AssertAbsent / AssertAbsentNamespaced before a create
//   - MustFind / MustFindNamespaced before a delete or a read
//
// Namespaced guards scope the lookup to an owning record, so the same label
// may exist under two different owners.
//
// # Errors
//
// Guards return *DuplicateError or *NotFoundError; argument checks return
// *BadArgumentError. Match them with errors.As, or with errors.Is against
// ErrDuplicate, ErrNotFound, and ErrBadArgument. They are client errors and
// are never retried.
//
// The guard and the insert are not atomic with respect to other requests. A
// racing create that slips past AssertAbsent is rejected by the schema's
// unique constraints, and the resulting store.ErrDuplicate is reported as the
// same *DuplicateError the guard would have returned.
package directory
