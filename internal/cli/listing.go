package cli

import (
	"fmt"
	"io"

	"vla/internal/community"
	"vla/internal/domain"
	"vla/internal/prompts"
	"vla/internal/tooling"
)

// ListPrompts prints the registered prompt template names, marking the default.
func ListPrompts(out io.Writer) {
	for _, name := range prompts.Names() {
		marker := " "
		if name == prompts.Default {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, name)
	}
}

// RenderPrompt prints template name rendered against info.
func RenderPrompt(out io.Writer, name string, info domain.CommunityInfo, message string) error {
	text, err := prompts.Render(name, prompts.Data{
		CommunityInfo:   community.Format(info),
		ProspectMessage: message,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}

// PrintTools lists tools in registration order. verbose adds each input schema.
func PrintTools(out io.Writer, tools []tooling.SchemaTool, verbose bool) {
	for _, t := range tools {
		fmt.Fprintf(out, "%s\n    %s\n", t.Name(), t.Description())
		if verbose {
			fmt.Fprintf(out, "    schema: %s\n", t.Definition())
		}
	}
}
