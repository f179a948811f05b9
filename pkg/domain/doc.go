/*
Package domain contains the data model shared by the compiler, the runtime and
every adapter.

It is kept free of I/O so snapshots can travel between processes as plain JSON.

# Key Entities

  - ScenarioData: The compiled script (acts in order plus scenario config).
  - Act: Messages, placeholder defaults, description and act-local config.
  - Config / LayeredConfig: Dot-path addressable settings and their inheritance chain.
  - State: The session snapshot (act pointer, queue, history, context, log, cost).
  - LifecycleHooks / Action: Caller extension points run by the engine.
*/
package domain
