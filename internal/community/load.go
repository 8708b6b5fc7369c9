package community

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"vla/internal/domain"
)

// readFileFunc is package-level so tests can inject read failures.
var readFileFunc = os.ReadFile

// LoadFile reads a community fixture. YAML and JSON are both accepted since
// JSON documents are valid YAML.
func LoadFile(path string) (domain.CommunityInfo, error) {
	data, err := readFileFunc(path)
	if err != nil {
		return nil, fmt.Errorf("community: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON mapping into CommunityInfo.
func Parse(data []byte) (domain.CommunityInfo, error) {
	var info domain.CommunityInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("community: decode: %w", err)
	}
	if info == nil {
		info = domain.CommunityInfo{}
	}
	return info, nil
}

// Static serves the same community information for every community ID. The
// chat command uses it to run against a local fixture.
type Static struct {
	Info domain.CommunityInfo
}

func (s Static) CommunityInfo(_ context.Context, _ string) (domain.CommunityInfo, error) {
	return s.Info, nil
}
