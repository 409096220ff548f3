// Package core contains the canonical skill client contracts, entities, and
// orchestration logic: credential records, the token lifecycle manager, the
// rate-limited request executor, and the resource facade. Lower-level
// adapters must depend on this package; core must not depend on
// provider-specific or transport-specific adapters.
package core
