// Package core contains the identity link contracts, entities, and the
// Service that validates, observes and maps errors around a LinkStore.
// Storage adapters depend on this package; core must not depend on a
// concrete database driver.
package core
