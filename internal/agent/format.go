package agent

import (
	"fmt"
	"strings"

	"vla/internal/domain"
)

// Step is one completed tool call in the current turn.
type Step struct {
	Decision    Decision
	Observation string
}

// style renders the prompt for one agent flavour and parses its replies.
type style interface {
	name() string
	prompt(prefix string, tools []domain.ToolDefinition, history, input string, steps []Step) string
	parse(text string) (Decision, error)
}

// describeTools lists tools one per line as "name: description".
func describeTools(tools []domain.ToolDefinition, bullet string) string {
	lines := make([]string, 0, len(tools))
	for _, t := range tools {
		line := bullet + t.Name + ": " + t.Description
		if args := describeArgs(t.Args); args != "" {
			line += " Arguments: " + args + "."
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func describeArgs(args []domain.ToolArg) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		p := a.Name
		if !a.Required {
			p += " (optional)"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

func toolNames(tools []domain.ToolDefinition) string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

// =============================================================================
// Zero-shot ReAct
// =============================================================================

type zeroShotStyle struct{}

func (zeroShotStyle) name() string { return "zero_shot" }

func (zeroShotStyle) parse(text string) (Decision, error) { return ParseZeroShot(text) }

func (zeroShotStyle) prompt(prefix string, tools []domain.ToolDefinition, _ string, input string, steps []Step) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(strings.TrimSpace(prefix))
		b.WriteString("\n\n")
	}
	if len(tools) > 0 {
		b.WriteString("You have access to the following tools:\n\n")
		b.WriteString(describeTools(tools, ""))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, `Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [%s]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

Begin!

Question: %s
Thought:`, toolNames(tools), input)
	for _, s := range steps {
		b.WriteString(" ")
		b.WriteString(s.Decision.Log)
		b.WriteString("\nObservation: ")
		b.WriteString(s.Observation)
		b.WriteString("\nThought:")
	}
	return b.String()
}

// =============================================================================
// Chat conversational (JSON blob)
// =============================================================================

type chatStyle struct{}

func (chatStyle) name() string { return "chat_conversational" }

func (chatStyle) parse(text string) (Decision, error) { return ParseJSONBlob(text) }

func (chatStyle) prompt(prefix string, tools []domain.ToolDefinition, history, input string, steps []Step) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(strings.TrimSpace(prefix))
		b.WriteString("\n\n")
	}
	b.WriteString("TOOLS\n------\nYou can ask the user to use tools to look up information that may be helpful in answering the user's question. The tools are:\n\n")
	b.WriteString(describeTools(tools, "> "))
	fmt.Fprintf(&b, "\n\nRESPONSE FORMAT INSTRUCTIONS\n----------------------------\n"+
		"When responding, please output a response in one of two formats:\n\n"+
		"**Option 1:**\nUse this if you want to use a tool.\nMarkdown code snippet formatted in the following schema:\n\n"+
		"```json\n{\n    \"action\": string, // The action to take. Must be one of %s\n    \"action_input\": string or object // The input to the action\n}\n```\n\n"+
		"**Option #2:**\nUse this if you want to respond directly to the human.\nMarkdown code snippet formatted in the following schema:\n\n"+
		"```json\n{\n    \"action\": \"%s\",\n    \"action_input\": string // You should put what you want to return to use here\n}\n```\n\n",
		toolNames(tools), FinalAnswerAction)
	if history != "" {
		b.WriteString("CONVERSATION SO FAR\n-------------------\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}
	b.WriteString("USER'S INPUT\n--------------------\nHere is the user's input (remember to respond with a markdown code snippet of a json blob with a single action, and NOTHING else):\n\n")
	b.WriteString(input)
	for _, s := range steps {
		b.WriteString("\n\nAI: ")
		b.WriteString(s.Decision.Log)
		b.WriteString("\nObservation: ")
		b.WriteString(s.Observation)
		b.WriteString("\n\nUsing the observation above, respond with a markdown code snippet of a json blob with a single action, and NOTHING else.")
	}
	b.WriteString("\n\nAI:")
	return b.String()
}
