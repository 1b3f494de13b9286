// Package resource centralizes shared resource limits: upload concurrency
// and throughput during pack replication, and accounting of mapped memory
// held by loaded packs.
package resource
