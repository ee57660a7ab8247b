// Package cache implements the advisory gate's snapshot cache.
//
// Three backends are available:
//   - memory: per-process go-cache (L1)
//   - redis: shared Redis cache (L2)
//   - tiered: L1 in front of L2, with Redis Pub/Sub evicting every
//     instance's L1 when a tenant's lock configuration changes
//
// No backend ever returns an error to the gate. A backend failure is a miss
// and the gate reads the period store instead.
package cache
