package storyflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/storyflow"
	"github.com/aretw0/storyflow/pkg/adapters/memory"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/dsl"
)

// ExampleNew_memory demonstrates how to use the Engine with an in-memory graph definition.
// This is useful for testing, embedded scenarios, or when you don't want to rely on the file system.
func ExampleNew_memory() {
	b := dsl.New("gate")
	b.Add("start").Entry().Go("check")
	b.Add("check").
		Condition(dsl.All(dsl.Rule("mc.health", "greater_than", 50))).
		Pin(domain.PinTrue, "pass").
		Pin(domain.PinFalse, "rest")
	b.Add("pass").Exit(domain.ExitTerminal, "")
	b.Add("rest").Exit(domain.ExitTerminal, "")

	loader, err := memory.NewLoader(b.MustBuild())
	if err != nil {
		log.Fatal(err)
	}
	loader.SetVariables(map[string]domain.Variable{
		"mc.health": domain.NewVariable("mc.health", domain.KindNumber, 80),
	})

	engine, err := storyflow.New("", storyflow.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, err := engine.Start(ctx, "example", "gate", "")
	if err != nil {
		log.Fatal(err)
	}

	for !state.Terminated() {
		var res domain.Result
		res, state, err = engine.Step(ctx, state)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s -> %s\n", res.Kind, res.NodeID)
	}
	for _, entry := range state.Console {
		fmt.Printf("[%s] %s\n", entry.Severity, entry.Message)
	}
	// Output:
	// advanced -> check
	// advanced -> pass
	// finished -> pass
	// [info] Flow started
	// [info] Condition is true: mc.health greater_than 50: passed (actual 80)
	// [info] Flow finished
}
