/*
Package file loads storyflow projects from YAML (or JSON) files.

A project declares the variable store and one or more graphs:

	name: Demo
	variables:
	  mc.health: {kind: number, value: 100}
	  mc.class: {kind: select, value: rogue, options: [rogue, mage]}
	graphs:
	  - id: main
	    nodes:
	      - {id: start, type: entry}
	      - id: greet
	        type: dialogue
	        data: {text: "Hello!", speaker: guard}
	    connections:
	      - {source: start, source_pin: output, target: greet}

Node order in the file is kept in the node list; connections keep file order,
which decides the first connection followed when a pin is connected twice.
*/
package file
