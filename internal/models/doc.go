// Package models defines the domain records persisted by resultgroups.
//
// # Records
//
//   - MemberResult: a single time-stamped result, stored on its own and
//     addressable by ID.
//   - GroupRecord: an ordered collection of member snapshots under a
//     partition key (owner config ID + dimension signature), with time
//     bounds derived from its members.
//
// # Design Principles
//
// 1. **Derived fields have one writer**: group bounds come from DeriveBounds,
//    called by the repositories on save and nowhere else.
// 2. **Groups are append-only**: a save always produces a new ID; several
//    groups may share a partition, and the latest save is authoritative.
// 3. **Members are referenced by ID**: a group keeps a value copy of the
//    fields it needs, not a pointer to the member record.
package models
