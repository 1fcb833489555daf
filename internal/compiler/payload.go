package compiler

import (
	"github.com/aretw0/storyflow/pkg/domain"
)

// Response is one selectable answer of a dialogue. Its id doubles as the
// output pin followed when it is chosen.
type Response struct {
	ID          string              `mapstructure:"id"`
	Text        string              `mapstructure:"text"`
	Condition   *domain.Condition   `mapstructure:"condition"`
	Instruction []domain.Assignment `mapstructure:"instruction"`
}

// DialogueData is the payload of a dialogue node.
type DialogueData struct {
	Text              string              `mapstructure:"text"`
	Speaker           string              `mapstructure:"speaker"`
	StageDirections   string              `mapstructure:"stage_directions"`
	MenuText          string              `mapstructure:"menu_text"`
	InputCondition    *domain.Condition   `mapstructure:"input_condition"`
	OutputInstruction []domain.Assignment `mapstructure:"output_instruction"`
	Responses         []Response          `mapstructure:"responses"`
}

// ConditionData is the payload of a boolean branch.
type ConditionData struct {
	Condition domain.Condition `mapstructure:"condition"`
}

// Case is one arm of a switch. Its id is the output pin.
type Case struct {
	ID        string           `mapstructure:"id"`
	Label     string           `mapstructure:"label"`
	Condition domain.Condition `mapstructure:"condition"`
}

// SwitchData is the payload of a multi-way branch.
type SwitchData struct {
	Cases []Case `mapstructure:"cases"`
}

// InstructionData is the payload of a mutation node.
type InstructionData struct {
	Assignments []domain.Assignment `mapstructure:"assignments"`
}

// HubData is the payload of a hub.
type HubData struct {
	HubID string `mapstructure:"hub_id"`
	Label string `mapstructure:"label"`
	Color string `mapstructure:"color"`
}

// JumpData is the payload of a jump.
type JumpData struct {
	TargetHubID string `mapstructure:"target_hub_id"`
}

// SceneData is the payload of a scene heading.
type SceneData struct {
	IntExt      string `mapstructure:"int_ext"`
	Location    string `mapstructure:"location"`
	SubLocation string `mapstructure:"sub_location"`
	TimeOfDay   string `mapstructure:"time_of_day"`
	Description string `mapstructure:"description"`
}

// SubflowData is the payload of a subgraph call.
type SubflowData struct {
	ReferencedFlowID string `mapstructure:"referenced_flow_id"`
}

// ExitData is the payload of an exit node.
type ExitData struct {
	Label            string `mapstructure:"label"`
	ExitMode         string `mapstructure:"exit_mode"`
	ReferencedFlowID string `mapstructure:"referenced_flow_id"`
}
