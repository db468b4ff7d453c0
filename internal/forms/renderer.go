package forms

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"dealtrack/internal/core"
)

// Renderer turns field specs plus current form state into HTML fragments.
// Dispatch is by field kind; unknown kinds are an error rather than silent
// empty output so a misconfigured variant fails loudly in tests.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{tmpl: fieldTemplates}
}

// RenderStep renders every visible field of the step in declaration order.
// Hidden conditional fields contribute nothing to the output.
func (r *Renderer) RenderStep(step StepSpec, v Values, errs FieldErrors) (template.HTML, error) {
	var buf bytes.Buffer
	for _, f := range step.Fields {
		frag, err := r.RenderField(f, v, errs)
		if err != nil {
			return "", err
		}
		buf.WriteString(string(frag))
	}
	return template.HTML(buf.String()), nil
}

// RenderField renders a single field. A field whose visibility condition does
// not hold renders as the empty string: its value survives in form state but
// nothing about it reaches the page.
func (r *Renderer) RenderField(f FieldSpec, v Values, errs FieldErrors) (template.HTML, error) {
	if !f.Visible(v) {
		return "", nil
	}
	name := templateName(f.Kind)
	if name == "" {
		return "", fmt.Errorf("no renderer for field kind %q", f.Kind)
	}
	data := buildFieldData(f, v, errs)
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render field %q: %w", f.Name, err)
	}
	return template.HTML(buf.String()), nil
}

func templateName(k Kind) string {
	switch k {
	case KindText:
		return "field_text"
	case KindSelect:
		return "field_select"
	case KindDate:
		return "field_date"
	case KindCurrency:
		return "field_currency"
	case KindPercent:
		return "field_percent"
	case KindRadioCards:
		return "field_radio_cards"
	case KindSegmented:
		return "field_segmented"
	case KindFees:
		return "field_fees"
	case KindSectionTitle:
		return "field_section_title"
	}
	return ""
}

// widthClass maps the layout hint onto the grid classes the step container
// uses. Unspecified width spans the full row.
func widthClass(w Width) string {
	switch w {
	case WidthHalf:
		return "col-span-6"
	case WidthThird:
		return "col-span-4"
	case WidthTwoThirds:
		return "col-span-8"
	default:
		return "col-span-12"
	}
}

type fieldData struct {
	Spec       FieldSpec
	Value      string
	Error      string
	WidthClass string
	Fees       []feeRowData
}

type feeRowData struct {
	Index     int
	Row       core.FeeRow
	Amount    string // display value for the active unit
	IsPercent bool
	Error     string
}

func buildFieldData(f FieldSpec, v Values, errs FieldErrors) fieldData {
	d := fieldData{
		Spec:       f,
		Error:      errs[f.Name],
		WidthClass: widthClass(f.Width),
	}
	switch f.Kind {
	case KindCurrency:
		if n, ok := v.Int64(f.Name); ok {
			d.Value = core.FormatCentsToCurrency(n)
		}
	case KindPercent:
		if p, ok := v.Float64(f.Name); ok {
			d.Value = strconv.FormatFloat(p, 'f', -1, 64)
		}
	case KindFees:
		for i, row := range v.Fees(f.Name) {
			fd := feeRowData{
				Index:     i,
				Row:       row,
				IsPercent: row.Unit == core.FeeUnitPercent,
				Error:     errs[fmt.Sprintf("%s.%d", f.Name, i)],
			}
			if fd.IsPercent {
				if row.Percent != nil {
					fd.Amount = strconv.FormatFloat(*row.Percent, 'f', -1, 64)
				}
			} else if row.AmountCents != nil {
				fd.Amount = core.FormatCentsToCurrency(*row.AmountCents)
			}
			d.Fees = append(d.Fees, fd)
		}
	default:
		if s, ok := v.String(f.Name); ok {
			d.Value = s
		}
	}
	return d
}

var fieldTemplates = template.Must(template.New("fields").Funcs(template.FuncMap{
	"widthClass": widthClass,
}).Parse(`
{{define "field_label"}}<label class="field-label" for="{{.Spec.Name}}">{{.Spec.Label}}</label>{{end}}

{{define "field_error"}}{{if .Error}}<p class="field-error" data-field="{{.Spec.Name}}">{{.Error}}</p>{{end}}{{end}}

{{define "field_text"}}
<div class="field {{.WidthClass}}{{if .Error}} has-error{{end}}">
  {{template "field_label" .}}
  <input type="text" id="{{.Spec.Name}}" name="{{.Spec.Name}}" value="{{.Value}}"
    {{- if .Spec.Placeholder}} placeholder="{{.Spec.Placeholder}}"{{end}}
    {{- if .Spec.Disabled}} disabled{{end}}>
  {{template "field_error" .}}
</div>
{{end}}

{{define "field_date"}}
<div class="field {{.WidthClass}}{{if .Error}} has-error{{end}}">
  {{template "field_label" .}}
  <input type="date" id="{{.Spec.Name}}" name="{{.Spec.Name}}" value="{{.Value}}"{{if .Spec.Disabled}} disabled{{end}}>
  {{template "field_error" .}}
</div>
{{end}}

{{define "field_currency"}}
<div class="field {{.WidthClass}}{{if .Error}} has-error{{end}}">
  {{template "field_label" .}}
  <input type="text" inputmode="decimal" class="input-currency" id="{{.Spec.Name}}" name="{{.Spec.Name}}"
    value="{{.Value}}"{{if .Spec.Placeholder}} placeholder="{{.Spec.Placeholder}}"{{end}}>
  {{template "field_error" .}}
</div>
{{end}}

{{define "field_percent"}}
<div class="field {{.WidthClass}}{{if .Error}} has-error{{end}}">
  {{template "field_label" .}}
  <div class="input-percent-wrap">
    <input type="text" inputmode="decimal" class="input-percent" id="{{.Spec.Name}}" name="{{.Spec.Name}}" value="{{.Value}}">
    <span class="input-suffix">%</span>
  </div>
  {{template "field_error" .}}
</div>
{{end}}

{{define "field_select"}}
<div class="field {{.WidthClass}}{{if .Error}} has-error{{end}}">
  {{template "field_label" .}}
  <select id="{{.Spec.Name}}" name="{{.Spec.Name}}">
    <option value="">—</option>
    {{$v := .Value}}{{range .Spec.Options}}<option value="{{.Value}}"{{if eq .Value $v}} selected{{end}}{{if .Disabled}} disabled{{end}}>{{.Label}}</option>
    {{end}}
  </select>
  {{template "field_error" .}}
</div>
{{end}}

{{define "field_radio_cards"}}
<fieldset class="field radio-cards {{.WidthClass}}{{if .Error}} has-error{{end}}">
  <legend class="field-label">{{.Spec.Label}}</legend>
  {{$name := .Spec.Name}}{{$v := .Value}}{{range .Spec.Options}}
  <label class="radio-card{{if .Disabled}} is-disabled{{end}}{{if eq .Value $v}} is-selected{{end}}">
    <input type="radio" name="{{$name}}" value="{{.Value}}"{{if eq .Value $v}} checked{{end}}{{if .Disabled}} disabled{{end}}>
    <span>{{.Label}}</span>
  </label>
  {{end}}
  {{template "field_error" .}}
</fieldset>
{{end}}

{{define "field_segmented"}}
<fieldset class="field segmented {{.WidthClass}}{{if .Error}} has-error{{end}}">
  <legend class="field-label">{{.Spec.Label}}</legend>
  {{$name := .Spec.Name}}{{$v := .Value}}{{range .Spec.Options}}
  <label class="segment{{if eq .Value $v}} is-selected{{end}}">
    <input type="radio" name="{{$name}}" value="{{.Value}}"{{if eq .Value $v}} checked{{end}}{{if .Disabled}} disabled{{end}}>
    <span>{{.Label}}</span>
  </label>
  {{end}}
  {{template "field_error" .}}
</fieldset>
{{end}}

{{define "field_section_title"}}
<div class="section-title col-span-12">
  <h3>{{.Spec.Title}}</h3>
  {{if .Spec.Description}}<p class="section-description">{{.Spec.Description}}</p>{{end}}
</div>
{{end}}

{{define "field_fees"}}
<div class="field fees-repeater {{.WidthClass}}{{if .Error}} has-error{{end}}" data-field="{{.Spec.Name}}">
  {{$name := .Spec.Name}}
  {{range .Fees}}
  <div class="fee-row{{if .Error}} has-error{{end}}" data-fee-id="{{.Row.ID}}">
    <input type="hidden" name="{{$name}}.{{.Index}}.id" value="{{.Row.ID}}">
    <input type="text" name="{{$name}}.{{.Index}}.label" value="{{.Row.Label}}" placeholder="Fee label">
    <div class="segmented fee-unit">
      <label class="segment{{if not .IsPercent}} is-selected{{end}}">
        <input type="radio" name="{{$name}}.{{.Index}}.unit" value="usd"{{if not .IsPercent}} checked{{end}}><span>$</span>
      </label>
      <label class="segment{{if .IsPercent}} is-selected{{end}}">
        <input type="radio" name="{{$name}}.{{.Index}}.unit" value="percent"{{if .IsPercent}} checked{{end}}><span>%</span>
      </label>
    </div>
    <input type="text" inputmode="decimal" name="{{$name}}.{{.Index}}.amount" value="{{.Amount}}">
    <select name="{{$name}}.{{.Index}}.basis">
      <option value="pre_split"{{if eq .Row.Basis "pre_split"}} selected{{end}}>Pre-split</option>
      <option value="post_split"{{if eq .Row.Basis "post_split"}} selected{{end}}>Post-split</option>
    </select>
    <button type="button" class="fee-remove" data-index="{{.Index}}">Remove</button>
    {{if .Error}}<p class="field-error">{{.Error}}</p>{{end}}
  </div>
  {{end}}
  <button type="button" class="fee-add">Add fee</button>
  {{template "field_error" .}}
</div>
{{end}}
`))
