// Package scenario parses the declarative HCL description of a batch
// run into an unordered task list plus a resource occurrence index.
// Each task block names its algorithm and declares the datasets, files
// and features it consumes and produces; the scheduler derives all
// dependency edges from those declarations.
package scenario

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/tuetschek/en-deep/internal/task"
)

// ErrMalformed is wrapped around all scenario parse and decode failures.
var ErrMalformed = errors.New("malformed scenario")

// Scenario is the parsed form of one scenario file: the task list in
// document order and the occurrence index over all declared resources.
type Scenario struct {
	Tasks []*task.Description
	Index *Index
}

// scenarioFile is the top-level HCL document structure.
type scenarioFile struct {
	Tasks []*taskBlock `hcl:"task,block"`
}

// taskBlock is one `task "<name>" "<algorithm>" { ... }` block.
// Params stays an expression so values may be strings, numbers or bools;
// everything is converted to string before it reaches the task.
type taskBlock struct {
	Name      string `hcl:"name,label"`
	Algorithm string `hcl:"algorithm,label"`

	Params hcl.Expression `hcl:"params,optional"`

	Input  []string `hcl:"input,optional"`
	Output []string `hcl:"output,optional"`

	InFiles  []string `hcl:"in_files,optional"`
	OutFiles []string `hcl:"out_files,optional"`

	InFeatures  []string `hcl:"in_features,optional"`
	OutFeatures []string `hcl:"out_features,optional"`
}

// Parse reads and decodes the scenario file at path.
func Parse(path string) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: parsing %s: %s", ErrMalformed, path, diags.Error())
	}

	var doc scenarioFile
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("%w: decoding %s: %s", ErrMalformed, path, diags.Error())
	}

	if len(doc.Tasks) == 0 {
		return nil, fmt.Errorf("%w: %s declares no tasks", ErrMalformed, path)
	}

	sc := &Scenario{Index: NewIndex()}
	seen := make(map[string]bool, len(doc.Tasks))

	for _, block := range doc.Tasks {
		if seen[block.Name] {
			return nil, fmt.Errorf("%w: duplicate task name %q", ErrMalformed, block.Name)
		}
		seen[block.Name] = true

		params, err := decodeParams(block.Params)
		if err != nil {
			return nil, fmt.Errorf("%w: task %q: %v", ErrMalformed, block.Name, err)
		}

		desc := &task.Description{
			Name:       block.Name,
			Algorithm:  block.Algorithm,
			Parameters: params,
			Input:      concat(block.Input, block.InFiles, block.InFeatures),
			Output:     concat(block.Output, block.OutFiles, block.OutFeatures),
			Rank:       task.UnassignedRank,
			Status:     task.StatusWaiting,
		}
		sc.Tasks = append(sc.Tasks, desc)

		if err := sc.indexTask(desc, block); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	return sc, nil
}

// indexTask registers all of one task's resource declarations.
func (sc *Scenario) indexTask(desc *task.Description, block *taskBlock) error {
	for class, outputs := range map[ResourceClass][]string{
		ClassDataset: block.Output,
		ClassFile:    block.OutFiles,
		ClassFeature: block.OutFeatures,
	} {
		for _, res := range outputs {
			if err := sc.Index.AddProducer(class, res, desc); err != nil {
				return err
			}
		}
	}
	for class, inputs := range map[ResourceClass][]string{
		ClassDataset: block.Input,
		ClassFile:    block.InFiles,
		ClassFeature: block.InFeatures,
	} {
		for _, res := range inputs {
			sc.Index.AddConsumer(class, res, desc)
		}
	}
	return nil
}

// decodeParams evaluates the params expression and converts every value
// to its string form. A missing params attribute yields a nil map.
func decodeParams(expr hcl.Expression) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating params: %s", diags.Error())
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("params must be a map, got %s", val.Type().FriendlyName())
	}

	params := make(map[string]string)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		str, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("param %s: %v", k.AsString(), err)
		}
		if str.IsNull() {
			return nil, fmt.Errorf("param %s is null", k.AsString())
		}
		params[k.AsString()] = str.AsString()
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// ResourceNames returns the sorted resource names of one class,
// useful for deterministic error reporting and tests.
func (sc *Scenario) ResourceNames(class ResourceClass) []string {
	m := sc.Index.Class(class)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
