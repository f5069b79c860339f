// Package catalog holds the course module registry.
//
// A [Registry] is built once at startup, either from the embedded
// catalog.yaml ([Default]) or from an alternate file ([LoadFile]), and is
// read-only afterwards. Handlers receive it explicitly and never mutate it;
// [Registry.List] and [Registry.Get] return copies.
//
// Demo availability is an attribute of each [Module] rather than a separate
// list. [Registry.WithDemoIDs] derives a new registry when the set is
// overridden by configuration.
package catalog
