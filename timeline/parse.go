package timeline

import (
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"

	"github.com/perceptlab/go-frame-scheduler/trial"
)

// fileSchema is the top level of an experiment file. Routine and loop
// blocks interleave, so the file is read with an explicit schema and the
// blocks walked in source order; decoding by block type would lose the
// flow ordering.
var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "experiment"},
		{Type: "resource", LabelNames: []string{"name"}},
		{Type: "routine", LabelNames: []string{"name"}},
		{Type: "loop", LabelNames: []string{"name"}},
	},
}

// loopSchema is the body of a loop block: ordering attributes plus a
// nested flow of routines and loops.
var loopSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "reps"},
		{Name: "method"},
		{Name: "conditions"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "routine", LabelNames: []string{"name"}},
		{Type: "loop", LabelNames: []string{"name"}},
	},
}

type hclExperiment struct {
	Name    string  `hcl:"name,optional"`
	Session string  `hcl:"session,optional"`
	FPS     float64 `hcl:"fps,optional"`
}

type hclResource struct {
	Location string `hcl:"location"`
}

type hclRoutine struct {
	DurationMS int64 `hcl:"duration_ms,optional"`
	Record     bool  `hcl:"record,optional"`
}

// Load reads and parses an experiment file from disk.
func Load(path string) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "parse %s", path)
	}
	return decodeFile(path, file.Body)
}

// Parse parses experiment source held in memory. The filename only labels
// diagnostics.
func Parse(filename string, src []byte) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "parse %s", filename)
	}
	return decodeFile(filename, file.Body)
}

func decodeFile(filename string, body hcl.Body) (*Definition, error) {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "decode %s", filename)
	}

	def := &Definition{}
	seenExperiment := false
	resourceNames := make(map[string]struct{})

	for _, block := range content.Blocks {
		switch block.Type {
		case "experiment":
			if seenExperiment {
				return nil, errors.Errorf("%s: duplicate experiment block", filename)
			}
			seenExperiment = true
			var exp hclExperiment
			if diags := gohcl.DecodeBody(block.Body, nil, &exp); diags.HasErrors() {
				return nil, errors.Wrapf(diags, "%s: decode experiment block", filename)
			}
			def.Name = exp.Name
			def.Session = exp.Session
			def.FPS = exp.FPS

		case "resource":
			name := block.Labels[0]
			if _, dup := resourceNames[name]; dup {
				return nil, errors.Errorf("%s: duplicate resource %q", filename, name)
			}
			resourceNames[name] = struct{}{}
			var res hclResource
			if diags := gohcl.DecodeBody(block.Body, nil, &res); diags.HasErrors() {
				return nil, errors.Wrapf(diags, "%s: decode resource %q", filename, name)
			}
			def.Resources = append(def.Resources, ResourceDef{Name: name, Location: res.Location})

		case "routine":
			step, err := decodeRoutine(block)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", filename)
			}
			def.Flow = append(def.Flow, step)

		case "loop":
			step, err := decodeLoop(block)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", filename)
			}
			def.Flow = append(def.Flow, step)
		}
	}
	return def, nil
}

func decodeRoutine(block *hcl.Block) (*RoutineStep, error) {
	name := block.Labels[0]
	var r hclRoutine
	if diags := gohcl.DecodeBody(block.Body, nil, &r); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "decode routine %q", name)
	}
	if r.DurationMS < 0 {
		return nil, errors.Errorf("routine %q: duration_ms must not be negative", name)
	}
	return &RoutineStep{
		Name:     name,
		Duration: time.Duration(r.DurationMS) * time.Millisecond,
		Record:   r.Record,
	}, nil
}

func decodeLoop(block *hcl.Block) (*LoopStep, error) {
	name := block.Labels[0]
	content, diags := block.Body.Content(loopSchema)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "decode loop %q", name)
	}

	step := &LoopStep{Name: name, Reps: 1}

	if attr, ok := content.Attributes["reps"]; ok {
		reps, err := intAttr(attr)
		if err != nil {
			return nil, errors.Wrapf(err, "loop %q", name)
		}
		if reps <= 0 {
			return nil, errors.Errorf("loop %q: reps must be positive, got %d", name, reps)
		}
		step.Reps = reps
	}

	if attr, ok := content.Attributes["method"]; ok {
		raw, err := stringAttr(attr)
		if err != nil {
			return nil, errors.Wrapf(err, "loop %q", name)
		}
		method, err := parseMethod(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "loop %q", name)
		}
		step.Method = method
	}

	if attr, ok := content.Attributes["conditions"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, errors.Wrapf(diags, "loop %q: evaluate conditions", name)
		}
		conditions, err := decodeConditions(val)
		if err != nil {
			return nil, errors.Wrapf(err, "loop %q", name)
		}
		step.Conditions = conditions
	}

	for _, child := range content.Blocks {
		switch child.Type {
		case "routine":
			nested, err := decodeRoutine(child)
			if err != nil {
				return nil, errors.Wrapf(err, "loop %q", name)
			}
			step.Body = append(step.Body, nested)
		case "loop":
			nested, err := decodeLoop(child)
			if err != nil {
				return nil, errors.Wrapf(err, "loop %q", name)
			}
			step.Body = append(step.Body, nested)
		}
	}
	return step, nil
}

func parseMethod(raw string) (trial.Method, error) {
	switch raw {
	case "", "sequential":
		return trial.MethodSequential, nil
	case "random":
		return trial.MethodRandom, nil
	case "fullRandom":
		return trial.MethodFullRandom, nil
	default:
		return 0, errors.Errorf("unknown method %q (want sequential, random or fullRandom)", raw)
	}
}

func intAttr(attr *hcl.Attribute) (int, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return 0, errors.Wrapf(diags, "evaluate %s", attr.Name)
	}
	if val.Type() != cty.Number {
		return 0, errors.Errorf("%s must be a number", attr.Name)
	}
	n, _ := val.AsBigFloat().Int64()
	return int(n), nil
}

func stringAttr(attr *hcl.Attribute) (string, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", errors.Wrapf(diags, "evaluate %s", attr.Name)
	}
	if val.Type() != cty.String {
		return "", errors.Errorf("%s must be a string", attr.Name)
	}
	return val.AsString(), nil
}

// decodeConditions converts a conditions attribute (a tuple of objects)
// into the trial package's condition table.
func decodeConditions(val cty.Value) ([]trial.Condition, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.CanIterateElements() {
		return nil, errors.New("conditions must be a list of objects")
	}
	var conditions []trial.Condition
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		decoded, err := ctyToGo(elem)
		if err != nil {
			return nil, errors.Wrapf(err, "condition %d", len(conditions))
		}
		row, ok := decoded.(map[string]any)
		if !ok {
			return nil, errors.Errorf("condition %d is not an object", len(conditions))
		}
		conditions = append(conditions, trial.Condition(row))
	}
	return conditions, nil
}

// ctyToGo converts a cty value into plain Go values: strings, float64
// numbers, bools, []any and map[string]any.
func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	if val.Type().IsPrimitiveType() {
		switch val.Type() {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, errors.Errorf("unsupported primitive type %s", val.Type().FriendlyName())
		}
	}
	if val.Type().IsObjectType() || val.Type().IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			decoded, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = decoded
		}
		return out, nil
	}
	if val.Type().IsTupleType() || val.Type().IsListType() || val.Type().IsSetType() {
		var out []any
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			decoded, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, decoded)
		}
		return out, nil
	}
	return nil, errors.Errorf("unsupported type %s", val.Type().FriendlyName())
}
