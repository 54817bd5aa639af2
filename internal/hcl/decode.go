package hcl

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/stagegraph/internal/config"
	"github.com/vk/stagegraph/internal/layout"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

const (
	blockLocals    = "locals"
	blockStep      = "step"
	blockParallel  = "parallel"
	blockStepGroup = "step_group"
	blockRollback  = "rollback"
	blockService   = "service"
	blockStyle     = "style"
)

// stepBody is the content of a `step` block.
type stepBody struct {
	Name string         `hcl:"name,optional"`
	Type string         `hcl:"type,optional"`
	Spec hcl.Expression `hcl:"spec,optional"`
}

// serviceBody is the content of a `service` block.
type serviceBody struct {
	Name string `hcl:"name,optional"`
	Type string `hcl:"type,optional"`
}

var functions = map[string]function.Function{
	"concat":     stdlib.ConcatFunc,
	"format":     stdlib.FormatFunc,
	"join":       stdlib.JoinFunc,
	"jsonencode": stdlib.JSONEncodeFunc,
	"lower":      stdlib.LowerFunc,
	"merge":      stdlib.MergeFunc,
	"upper":      stdlib.UpperFunc,
}

// decoder walks one file. Identifiers must be unique within the forward
// steps and within the rollback steps; the two sides may share one.
type decoder struct {
	evalCtx *hcl.EvalContext
	seen    map[string]map[string]hcl.Range
}

func newDecoder() *decoder {
	return &decoder{
		evalCtx: &hcl.EvalContext{
			Variables: map[string]cty.Value{"local": cty.EmptyObjectVal},
			Functions: functions,
		},
		seen: map[string]map[string]hcl.Range{},
	}
}

func (d *decoder) file(body *hclsyntax.Body) (*config.Document, hcl.Diagnostics) {
	doc := &config.Document{}
	var diags hcl.Diagnostics

	for _, b := range body.Blocks {
		if b.Type == blockLocals {
			diags = append(diags, d.locals(b)...)
		}
	}

	for name, attr := range body.Attributes {
		if name != "name" {
			diags = append(diags, unsupportedArgument(attr))
			continue
		}
		val, valDiags := attr.Expr.Value(d.evalCtx)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			continue
		}
		if val.Type() != cty.String || val.IsNull() {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid pipeline name",
				Detail:   "The pipeline name must be a string.",
				Subject:  attr.Expr.Range().Ptr(),
			})
			continue
		}
		doc.Name = val.AsString()
	}

	var rollbackSeen, styleSeen bool
	for _, b := range body.Blocks {
		switch b.Type {
		case blockLocals:
		case blockStyle:
			if styleSeen {
				diags = append(diags, duplicateBlock(b))
				continue
			}
			styleSeen = true
			diags = append(diags, d.style(b, &doc.Style)...)
		case blockService:
			svc, svcDiags := d.service(b)
			diags = append(diags, svcDiags...)
			if svc != nil {
				doc.Services = append(doc.Services, svc)
			}
		case blockRollback:
			if rollbackSeen {
				diags = append(diags, duplicateBlock(b))
				continue
			}
			rollbackSeen = true
			list, listDiags := d.list(b.Body, blockRollback)
			diags = append(diags, listDiags...)
			doc.Tree.RollbackSteps = list
		default:
			n, nDiags := d.node(b, blockStep)
			diags = append(diags, nDiags...)
			if n != nil {
				doc.Tree.Steps = append(doc.Tree.Steps, n)
			}
		}
	}
	return doc, diags
}

// style decodes the layout metrics of a style block into dst.
func (d *decoder) style(b *hclsyntax.Block, dst *layout.Style) hcl.Diagnostics {
	var diags hcl.Diagnostics
	if len(b.Labels) > 0 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unexpected style label",
			Detail:   "A style block takes no labels.",
			Subject:  b.LabelRanges[0].Ptr(),
		})
	}
	var s layout.Style
	diags = append(diags, gohcl.DecodeBody(b.Body, d.evalCtx, &s)...)
	if diags.HasErrors() {
		return diags
	}
	if s.Negative() {
		return append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid style",
			Detail:   "Style metrics must not be negative.",
			Subject:  b.TypeRange.Ptr(),
		})
	}
	*dst = s
	return diags
}

// locals evaluates a locals block in source order, so a local may refer to
// any local defined above it.
func (d *decoder) locals(b *hclsyntax.Block) hcl.Diagnostics {
	var diags hcl.Diagnostics
	if len(b.Body.Blocks) > 0 {
		diags = append(diags, unsupportedBlock(b.Body.Blocks[0]))
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(b.Body.Attributes))
	for _, a := range b.Body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	vals := d.evalCtx.Variables["local"].AsValueMap()
	if vals == nil {
		vals = map[string]cty.Value{}
	}
	for _, a := range attrs {
		val, valDiags := a.Expr.Value(d.evalCtx)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			continue
		}
		vals[a.Name] = val
		d.evalCtx.Variables["local"] = cty.ObjectVal(vals)
	}
	return diags
}

// list decodes the blocks of body into a step list. scope is "step" for
// forward lists and "rollback" for rollback lists.
func (d *decoder) list(body *hclsyntax.Body, scope string) ([]*pipeline.StepNode, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	for _, attr := range body.Attributes {
		diags = append(diags, unsupportedArgument(attr))
	}
	var out []*pipeline.StepNode
	for _, b := range body.Blocks {
		n, nDiags := d.node(b, scope)
		diags = append(diags, nDiags...)
		if n != nil {
			out = append(out, n)
		}
	}
	return out, diags
}

// node decodes one step, parallel or step_group block.
func (d *decoder) node(b *hclsyntax.Block, scope string) (*pipeline.StepNode, hcl.Diagnostics) {
	switch b.Type {
	case blockStep:
		return d.step(b, scope)
	case blockParallel:
		return d.parallel(b, scope)
	case blockStepGroup:
		return d.group(b, scope)
	}
	return nil, hcl.Diagnostics{unsupportedBlock(b)}
}

func (d *decoder) step(b *hclsyntax.Block, scope string) (*pipeline.StepNode, hcl.Diagnostics) {
	diags := d.checkLabel(b, scope)
	if diags.HasErrors() {
		return nil, diags
	}

	var body stepBody
	diags = append(diags, gohcl.DecodeBody(b.Body, d.evalCtx, &body)...)
	if diags.HasErrors() {
		return nil, diags
	}

	s := &pipeline.Step{Identifier: b.Labels[0], Name: body.Name, Type: body.Type}
	if s.Name == "" {
		s.Name = s.Identifier
	}
	if body.Spec != nil {
		spec, specDiags := d.spec(body.Spec)
		diags = append(diags, specDiags...)
		s.Spec = spec
	}
	return pipeline.NewStep(s), diags
}

// spec evaluates a step's spec attribute to JSON. An absent attribute yields
// a nil spec.
func (d *decoder) spec(expr hcl.Expression) (json.RawMessage, hcl.Diagnostics) {
	val, diags := expr.Value(d.evalCtx)
	if diags.HasErrors() || val.IsNull() {
		return nil, diags
	}
	if !val.IsWhollyKnown() {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown spec value",
			Detail:   "The spec must be known when the file is loaded.",
			Subject:  expr.Range().Ptr(),
		})
	}
	raw, err := ctyjson.SimpleJSONValue{Value: val}.MarshalJSON()
	if err != nil {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid spec value",
			Detail:   fmt.Sprintf("The spec cannot be converted to JSON: %s.", err),
			Subject:  expr.Range().Ptr(),
		})
	}
	return raw, diags
}

func (d *decoder) parallel(b *hclsyntax.Block, scope string) (*pipeline.StepNode, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	if len(b.Labels) > 0 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unexpected label",
			Detail:   "A parallel block takes no label.",
			Subject:  b.LabelRanges[0].Ptr(),
		})
	}
	for _, attr := range b.Body.Attributes {
		diags = append(diags, unsupportedArgument(attr))
	}

	var branches []*pipeline.StepNode
	for _, inner := range b.Body.Blocks {
		if inner.Type == blockParallel {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Nested parallel",
				Detail:   "A parallel block cannot hold another parallel block directly; wrap it in a step_group.",
				Subject:  inner.TypeRange.Ptr(),
			})
			continue
		}
		n, nDiags := d.node(inner, scope)
		diags = append(diags, nDiags...)
		if n != nil {
			branches = append(branches, n)
		}
	}
	return pipeline.NewParallel(branches...), diags
}

func (d *decoder) group(b *hclsyntax.Block, scope string) (*pipeline.StepNode, hcl.Diagnostics) {
	diags := d.checkLabel(b, scope)
	if diags.HasErrors() {
		return nil, diags
	}

	g := &pipeline.StepGroup{Identifier: b.Labels[0]}
	for name, attr := range b.Body.Attributes {
		if name != "name" {
			diags = append(diags, unsupportedArgument(attr))
			continue
		}
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, d.evalCtx, &g.Name)...)
	}
	if g.Name == "" {
		g.Name = g.Identifier
	}

	rollbackSeen := false
	for _, inner := range b.Body.Blocks {
		if inner.Type != blockRollback {
			n, nDiags := d.node(inner, scope)
			diags = append(diags, nDiags...)
			if n != nil {
				g.Steps = append(g.Steps, n)
			}
			continue
		}
		if rollbackSeen {
			diags = append(diags, duplicateBlock(inner))
			continue
		}
		rollbackSeen = true
		list, listDiags := d.list(inner.Body, blockRollback)
		diags = append(diags, listDiags...)
		g.RollbackSteps = list
	}
	return pipeline.NewStepGroup(g), diags
}

func (d *decoder) service(b *hclsyntax.Block) (*pipeline.Service, hcl.Diagnostics) {
	diags := d.checkLabel(b, blockService)
	if diags.HasErrors() {
		return nil, diags
	}
	var body serviceBody
	diags = append(diags, gohcl.DecodeBody(b.Body, d.evalCtx, &body)...)
	if diags.HasErrors() {
		return nil, diags
	}
	svc := &pipeline.Service{Identifier: b.Labels[0], Name: body.Name, Type: body.Type}
	if svc.Name == "" {
		svc.Name = svc.Identifier
	}
	return svc, diags
}

// checkLabel requires exactly one non-empty label and records it as taken
// in scope.
func (d *decoder) checkLabel(b *hclsyntax.Block, scope string) hcl.Diagnostics {
	if len(b.Labels) != 1 || b.Labels[0] == "" {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing identifier",
			Detail:   fmt.Sprintf("A %s block takes exactly one label: its identifier.", b.Type),
			Subject:  b.DefRange().Ptr(),
		}}
	}
	id := b.Labels[0]
	taken := d.seen[scope]
	if taken == nil {
		taken = map[string]hcl.Range{}
		d.seen[scope] = taken
	}
	if prev, ok := taken[id]; ok {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Duplicate identifier",
			Detail:   fmt.Sprintf("%q is already defined at %s.", id, prev),
			Subject:  b.LabelRanges[0].Ptr(),
		}}
	}
	taken[id] = b.LabelRanges[0]
	return nil
}

func unsupportedArgument(attr *hclsyntax.Attribute) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Unsupported argument",
		Detail:   fmt.Sprintf("An argument named %q is not expected here.", attr.Name),
		Subject:  attr.NameRange.Ptr(),
	}
}

func unsupportedBlock(b *hclsyntax.Block) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Unsupported block type",
		Detail:   fmt.Sprintf("Blocks of type %q are not expected here.", b.Type),
		Subject:  b.TypeRange.Ptr(),
	}
}

func duplicateBlock(b *hclsyntax.Block) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Duplicate block",
		Detail:   fmt.Sprintf("Only one %q block is allowed here.", b.Type),
		Subject:  b.TypeRange.Ptr(),
	}
}
