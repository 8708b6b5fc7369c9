package prompts

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// Template names.
const (
	TwoToolConcise    = "two_tool_concise"
	TwoToolExplicit   = "two_tool_explicit"
	ThreeToolConcise  = "three_tool_concise"
	ThreeToolExplicit = "three_tool_explicit"
	ToolsMinimal      = "tools_minimal"
	DisableVLA        = "disable_vla"

	// Default is the template the HTTP endpoint runs with.
	Default = TwoToolExplicit
)

// Data is the input every template is rendered with.
type Data struct {
	CommunityInfo   string
	ProspectMessage string
}

var registry = map[string]*template.Template{}

func init() {
	for name, text := range map[string]string{
		TwoToolConcise:    twoToolConcise,
		TwoToolExplicit:   twoToolExplicit,
		ThreeToolConcise:  threeToolConcise,
		ThreeToolExplicit: threeToolExplicit,
		ToolsMinimal:      toolsMinimal,
		DisableVLA:        disableVLA,
	} {
		registry[name] = template.Must(template.New(name).Option("missingkey=zero").Parse(text))
	}
}

// Names returns the registered template names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a template with the given name exists.
func Has(name string) bool {
	_, ok := registry[name]
	return ok
}

// Render executes the named template.
func Render(name string, data Data) (string, error) {
	tmpl, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("prompts: unknown template %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", name, err)
	}
	return b.String(), nil
}

// WithProspectMessage appends the prospect message the way the HTTP endpoint
// hands it to the agent.
func WithProspectMessage(prompt, message string) string {
	return prompt + "\n\nHere is the prospect message:\n\n" + message
}
