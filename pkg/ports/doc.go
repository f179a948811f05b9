/*
Package ports defines the driven ports (interfaces) for the actscript engine.

These interfaces decouple the core from external implementations, allowing
sessions and scripts to live in various storage backends.

# Key Interfaces

  - ScriptLoader: Serves dialogue scripts by ID (e.g., from Loam, a directory or Memory).
  - StateStore: Persists and loads session State.
  - DistributedLocker: Provides distributed locking for concurrent session access.
*/
package ports
