/*
Package ports defines the driven ports (interfaces) for the storyflow engine.

These interfaces decouple the debugging hosts from concrete graph sources and
session storage.

# Key Interfaces

  - GraphLoader: Resolves graphs by id (e.g., from a project file or memory).
  - VariableProvider: Supplies the declared variable store of a project.
  - StateStore: Keeps the live State of each debugging session.
  - DebugEngine: The engine surface used by hosts (HTTP, CLI, auto-play runner).
*/
package ports
