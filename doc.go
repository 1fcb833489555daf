/*
Package storyflow is a deterministic interpreter and debugger for branching narrative flows.

A flow is a graph of typed nodes (dialogue, branches, variable mutations, hubs,
jumps, scene headings, subflow calls and exits) executed against a typed
variable store. The engine walks the graph one step at a time and every step
can be undone.

# Concept

The engine holds no session data. Every operation takes a State and returns a
new one, so the host ("Host") owns exactly one live copy per session and decides
how operations are serialised. Graphs are resolved through a ports.GraphLoader:
a YAML project file by default, or any custom loader.

# Key Features

  - Step-by-step execution with snapshot-based undo (up to 50 steps back).
  - Analysis and player view modes: invalid responses and non-taken branches are shown-but-marked or hidden.
  - Cross-graph execution with an explicit, depth-limited call stack.
  - Breakpoints with optional guard conditions, and a step-limit loop guard.
  - Per-rule condition detail and a variable change history for every step.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/storyflow"
	)

	func main() {
		eng, err := storyflow.New("./story.yaml")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		state, err := eng.Start(ctx, "session-123", "", "")
		if err != nil {
			log.Fatal(err)
		}

		for {
			res, next, err := eng.Step(ctx, state)
			if err != nil {
				log.Fatal(err)
			}
			state = next

			if res.Kind == domain.ResultWaitingForChoice {
				res, state, err = eng.ChooseResponse(ctx, state, res.Candidates[0].ID)
				if err != nil {
					log.Fatal(err)
				}
			}
			if state.Terminated() || res.Kind == domain.ResultLimitReached {
				break
			}
		}

		for _, entry := range state.Console {
			fmt.Println(entry.Severity, entry.Message)
		}
	}
*/
package storyflow
