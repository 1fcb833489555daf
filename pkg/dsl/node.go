package dsl

import (
	"fmt"

	"github.com/aretw0/storyflow/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

func (n *NodeBuilder) typed(t domain.NodeType) *NodeBuilder {
	n.node.Type = t
	return n
}

// Entry marks the node as the entry of the graph.
func (n *NodeBuilder) Entry() *NodeBuilder {
	return n.typed(domain.NodeTypeEntry)
}

// Dialogue marks the node as a dialogue line with the given text.
func (n *NodeBuilder) Dialogue(text string) *NodeBuilder {
	n.node.Data["text"] = text
	return n.typed(domain.NodeTypeDialogue)
}

// Speaker sets who says the dialogue line.
func (n *NodeBuilder) Speaker(speaker string) *NodeBuilder {
	n.node.Data["speaker"] = speaker
	return n
}

// InputCondition guards the dialogue.
func (n *NodeBuilder) InputCondition(cond domain.Condition) *NodeBuilder {
	n.node.Data["input_condition"] = conditionData(cond)
	return n
}

// OutputInstruction runs assignments when the dialogue is reached.
func (n *NodeBuilder) OutputInstruction(assignments ...domain.Assignment) *NodeBuilder {
	n.node.Data["output_instruction"] = assignmentsData(n.node.ID+".out", assignments)
	return n
}

// Response appends an unconditional response.
func (n *NodeBuilder) Response(id, text string) *NodeBuilder {
	return n.addResponse(id, text, nil, nil)
}

// ResponseIf appends a response guarded by cond.
func (n *NodeBuilder) ResponseIf(id, text string, cond domain.Condition) *NodeBuilder {
	return n.addResponse(id, text, &cond, nil)
}

// ResponseDo appends a response that runs assignments when chosen.
func (n *NodeBuilder) ResponseDo(id, text string, assignments ...domain.Assignment) *NodeBuilder {
	return n.addResponse(id, text, nil, assignments)
}

func (n *NodeBuilder) addResponse(id, text string, cond *domain.Condition, assignments []domain.Assignment) *NodeBuilder {
	r := map[string]any{"id": id, "text": text}
	if cond != nil {
		r["condition"] = conditionData(*cond)
	}
	if len(assignments) > 0 {
		r["instruction"] = assignmentsData(n.node.ID+"."+id, assignments)
	}
	list, _ := n.node.Data["responses"].([]any)
	n.node.Data["responses"] = append(list, r)
	return n
}

// Condition marks the node as a boolean branch.
func (n *NodeBuilder) Condition(cond domain.Condition) *NodeBuilder {
	n.node.Data["condition"] = conditionData(cond)
	return n.typed(domain.NodeTypeCondition)
}

// Case appends a case to a switch node. The case id names its output pin.
func (n *NodeBuilder) Case(id string, cond domain.Condition) *NodeBuilder {
	list, _ := n.node.Data["cases"].([]any)
	n.node.Data["cases"] = append(list, map[string]any{"id": id, "condition": conditionData(cond)})
	return n.typed(domain.NodeTypeSwitch)
}

// Instruction marks the node as a mutation running assignments in order.
func (n *NodeBuilder) Instruction(assignments ...domain.Assignment) *NodeBuilder {
	n.node.Data["assignments"] = assignmentsData(n.node.ID, assignments)
	return n.typed(domain.NodeTypeInstruction)
}

// Hub marks the node as a hub reachable by jumps to hubID.
func (n *NodeBuilder) Hub(hubID string) *NodeBuilder {
	n.node.Data["hub_id"] = hubID
	return n.typed(domain.NodeTypeHub)
}

// Jump marks the node as a jump to the hub with hubID.
func (n *NodeBuilder) Jump(hubID string) *NodeBuilder {
	n.node.Data["target_hub_id"] = hubID
	return n.typed(domain.NodeTypeJump)
}

// Scene marks the node as a scene heading.
func (n *NodeBuilder) Scene(intExt, location, timeOfDay string) *NodeBuilder {
	n.node.Data["int_ext"] = intExt
	n.node.Data["location"] = location
	n.node.Data["time_of_day"] = timeOfDay
	return n.typed(domain.NodeTypeScene)
}

// Subflow marks the node as a call to flowID.
func (n *NodeBuilder) Subflow(flowID string) *NodeBuilder {
	n.node.Data["referenced_flow_id"] = flowID
	return n.typed(domain.NodeTypeSubflow)
}

// Exit marks the node as an exit. flowID is only used by flow_reference.
func (n *NodeBuilder) Exit(mode, flowID string) *NodeBuilder {
	n.node.Data["exit_mode"] = mode
	if flowID != "" {
		n.node.Data["referenced_flow_id"] = flowID
	}
	return n.typed(domain.NodeTypeExit)
}

// Data sets a raw payload field.
func (n *NodeBuilder) Data(key string, value any) *NodeBuilder {
	n.node.Data[key] = value
	return n
}

// Go connects the output pin to target.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.Pin(domain.PinOutput, target)
}

// Pin connects a named output pin to target.
func (n *NodeBuilder) Pin(pin, target string) *NodeBuilder {
	n.builder.Connect(n.node.ID, pin, target)
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}

// Rule builds a rule comparing variable to value.
func Rule(variable, operator string, value any) domain.Rule {
	return domain.Rule{Variable: variable, Operator: operator, Value: value}
}

// All builds a condition passing when every rule passes.
func All(rules ...domain.Rule) domain.Condition {
	return domain.Condition{Logic: domain.LogicAll, Rules: rules}
}

// Any builds a condition passing when at least one rule passes.
func Any(rules ...domain.Rule) domain.Condition {
	return domain.Condition{Logic: domain.LogicAny, Rules: rules}
}

// Assign builds a literal assignment.
func Assign(variable, operator string, value any) domain.Assignment {
	return domain.Assignment{Variable: variable, Operator: operator, Value: value, ValueType: domain.ValueLiteral}
}

// AssignRef builds an assignment whose operand is the current value of ref.
func AssignRef(variable, operator, ref string) domain.Assignment {
	return domain.Assignment{Variable: variable, Operator: operator, ValueType: domain.ValueVariableRef, ValueVariable: ref}
}

func conditionData(cond domain.Condition) map[string]any {
	rules := make([]any, 0, len(cond.Rules))
	for i, r := range cond.Rules {
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("r%d", i+1)
		}
		rules = append(rules, map[string]any{
			"id":       id,
			"variable": r.Variable,
			"operator": r.Operator,
			"value":    r.Value,
		})
	}
	return map[string]any{"logic": string(cond.Logic), "rules": rules}
}

func assignmentsData(prefix string, assignments []domain.Assignment) []any {
	out := make([]any, 0, len(assignments))
	for i, a := range assignments {
		id := a.ID
		if id == "" {
			id = fmt.Sprintf("%s.%d", prefix, i+1)
		}
		out = append(out, map[string]any{
			"id":             id,
			"variable":       a.Variable,
			"operator":       a.Operator,
			"value":          a.Value,
			"value_type":     a.ValueType,
			"value_variable": a.ValueVariable,
		})
	}
	return out
}
