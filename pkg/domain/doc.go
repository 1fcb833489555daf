/*
Package domain contains the core domain models of the storyflow engine.

It defines the entities the interpreter walks and produces: Nodes and Connections
of an author-defined Graph, the typed Variable store, Conditions and Assignments,
and the execution State with its snapshot stack and call stack. This package is
kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Node: A point in the graph (entry, dialogue, condition, switch, instruction, hub, jump, scene, subflow, exit).
  - Connection: A directed edge leaving a named output pin of a node.
  - Variable: A namespaced, typed value ("owner.name") with provenance.
  - State: The immutable execution record of a debugging session.
  - Result: The tagged outcome of one engine operation.
*/
package domain
