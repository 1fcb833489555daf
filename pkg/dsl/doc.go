/*
Package dsl provides a fluent builder for constructing storyflow graphs in Go.

It is mostly used by tests and by hosts that generate flows programmatically
instead of loading them from project files. Payloads are produced in the same
shape a project file decodes to, so built graphs exercise the same decoding
path as loaded ones.

Example usage:

	b := dsl.New("intro")

	b.Add("start").Entry().Go("greet")

	b.Add("greet").
		Dialogue("Halt! Who goes there?").
		Speaker("guard").
		Response("friend", "A friend.").
		ResponseIf("bribe", "Take this.", dsl.All(dsl.Rule("mc.gold", "greater_than", 10))).
		Pin("friend", "end").
		Pin("bribe", "end")

	b.Add("end").Exit(domain.ExitTerminal, "")

	graph, err := b.Build()
*/
package dsl
