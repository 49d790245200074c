package terraform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
)

var variableSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "variable", LabelNames: []string{"name"}},
	},
}

var variableBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "default"},
	},
}

// InspectVariables parses the *.tf files directly inside dir and returns the variables
// they declare, sorted by name. A variable is required when it has no default or its
// default is null.
func InspectVariables(dir string) ([]Variable, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration directory: %w", err)
	}

	parser := hclparse.NewParser()
	var diags hcl.Diagnostics
	var vars []Variable
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tf") {
			continue
		}
		file, fileDiags := parser.ParseHCLFile(filepath.Join(dir, entry.Name()))
		diags = append(diags, fileDiags...)
		if file == nil {
			continue
		}

		content, _, contentDiags := file.Body.PartialContent(variableSchema)
		diags = append(diags, contentDiags...)
		for _, block := range content.Blocks {
			vars = append(vars, Variable{
				Name:     block.Labels[0],
				Required: !hasDefault(block.Body),
			})
		}
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse configuration: %w", diags)
	}

	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars, nil
}

func hasDefault(body hcl.Body) bool {
	content, _, diags := body.PartialContent(variableBodySchema)
	if diags.HasErrors() {
		return false
	}
	attr, ok := content.Attributes["default"]
	if !ok {
		return false
	}
	val, valDiags := attr.Expr.Value(nil)
	if valDiags.HasErrors() {
		// Defaults may reference functions; treat them as present
		return true
	}
	return !val.IsNull()
}

// CheckVariables compares supplied values with the declared variables and returns the
// supplied names nothing declares and the required names nothing supplies.
func CheckVariables(declared []Variable, supplied map[string]string) (undeclared, missing []string) {
	known := make(map[string]bool, len(declared))
	for _, v := range declared {
		known[v.Name] = true
		if _, ok := supplied[v.Name]; !ok && v.Required {
			missing = append(missing, v.Name)
		}
	}
	for name := range supplied {
		if !known[name] {
			undeclared = append(undeclared, name)
		}
	}
	sort.Strings(undeclared)
	sort.Strings(missing)
	return undeclared, missing
}
