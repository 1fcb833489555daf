package compiler

import (
	"fmt"

	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// UnparseableNodeError reports a node whose payload does not match its type.
type UnparseableNodeError struct {
	NodeID string
	Type   domain.NodeType
	Err    error
}

func (e *UnparseableNodeError) Error() string {
	return fmt.Sprintf("node %q (%s): unparseable payload: %v", e.NodeID, e.Type, e.Err)
}

func (e *UnparseableNodeError) Unwrap() error { return e.Err }

// Parser decodes the opaque payload of a node into its typed form.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes the payload of node according to its type and returns one of
// the *Data structs of this package. Entry nodes carry no payload and yield nil.
func (p *Parser) Parse(node domain.Node) (any, error) {
	switch node.Type {
	case domain.NodeTypeEntry:
		return nil, nil
	case domain.NodeTypeDialogue:
		return p.Dialogue(node)
	case domain.NodeTypeCondition:
		return p.Condition(node)
	case domain.NodeTypeSwitch:
		return p.Switch(node)
	case domain.NodeTypeInstruction:
		return p.Instruction(node)
	case domain.NodeTypeHub:
		return p.Hub(node)
	case domain.NodeTypeJump:
		return p.Jump(node)
	case domain.NodeTypeScene:
		return p.Scene(node)
	case domain.NodeTypeSubflow:
		return p.Subflow(node)
	case domain.NodeTypeExit:
		return p.Exit(node)
	default:
		return nil, &UnparseableNodeError{NodeID: node.ID, Type: node.Type, Err: fmt.Errorf("unknown node type")}
	}
}

// Dialogue decodes a dialogue payload. Responses need an id.
func (p *Parser) Dialogue(node domain.Node) (DialogueData, error) {
	var out DialogueData
	if err := decode(node, &out); err != nil {
		return out, err
	}
	seen := make(map[string]bool, len(out.Responses))
	for i, r := range out.Responses {
		if r.ID == "" {
			return out, unparseable(node, fmt.Errorf("response %d has no id", i))
		}
		if seen[r.ID] {
			return out, unparseable(node, fmt.Errorf("duplicate response id %q", r.ID))
		}
		seen[r.ID] = true
	}
	return out, nil
}

func (p *Parser) Condition(node domain.Node) (ConditionData, error) {
	var out ConditionData
	err := decode(node, &out)
	return out, err
}

// Switch decodes a switch payload. Case ids name output pins, so they must
// be set and unique.
func (p *Parser) Switch(node domain.Node) (SwitchData, error) {
	var out SwitchData
	if err := decode(node, &out); err != nil {
		return out, err
	}
	seen := make(map[string]bool, len(out.Cases))
	for i, c := range out.Cases {
		if c.ID == "" {
			return out, unparseable(node, fmt.Errorf("case %d has no id", i))
		}
		if seen[c.ID] {
			return out, unparseable(node, fmt.Errorf("duplicate case id %q", c.ID))
		}
		seen[c.ID] = true
	}
	return out, nil
}

func (p *Parser) Instruction(node domain.Node) (InstructionData, error) {
	var out InstructionData
	err := decode(node, &out)
	return out, err
}

func (p *Parser) Hub(node domain.Node) (HubData, error) {
	var out HubData
	err := decode(node, &out)
	return out, err
}

func (p *Parser) Jump(node domain.Node) (JumpData, error) {
	var out JumpData
	err := decode(node, &out)
	return out, err
}

func (p *Parser) Scene(node domain.Node) (SceneData, error) {
	var out SceneData
	err := decode(node, &out)
	return out, err
}

func (p *Parser) Subflow(node domain.Node) (SubflowData, error) {
	var out SubflowData
	err := decode(node, &out)
	return out, err
}

// Exit decodes an exit payload. A missing mode means terminal.
func (p *Parser) Exit(node domain.Node) (ExitData, error) {
	var out ExitData
	if err := decode(node, &out); err != nil {
		return out, err
	}
	switch out.ExitMode {
	case "":
		out.ExitMode = domain.ExitTerminal
	case domain.ExitTerminal, domain.ExitFlowReference, domain.ExitCallerReturn:
	default:
		return out, unparseable(node, fmt.Errorf("unknown exit mode %q", out.ExitMode))
	}
	return out, nil
}

func decode(node domain.Node, out any) error {
	if len(node.Data) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return unparseable(node, err)
	}
	if err := dec.Decode(node.Data); err != nil {
		return unparseable(node, err)
	}
	return nil
}

func unparseable(node domain.Node, err error) error {
	return &UnparseableNodeError{NodeID: node.ID, Type: node.Type, Err: err}
}
