package web

import (
	"context"
	"html/template"
	"net/http"
	"strconv"

	"loan-approval/internal/applicant"
	"loan-approval/internal/report"

	"github.com/rs/zerolog/log"
)

// RejectionWarning is shown under a rejected decision.
const RejectionWarning = "Applicant is classified as high-risk based on financial indicators."

const formTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Loan Approval Predictor</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 900px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; border-radius: 10px; margin-bottom: 20px; }
        .header h1 { margin: 0; font-size: 2em; text-align: center; }
        .header p { margin: 8px 0 0; text-align: center; }
        .card { background: white; border-radius: 10px; padding: 20px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); margin-bottom: 20px; }
        .card h3 { margin-top: 0; color: #333; border-bottom: 2px solid #eee; padding-bottom: 10px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(320px, 1fr)); gap: 16px; }
        .field label { display: block; font-weight: 500; color: #666; margin-bottom: 4px; }
        .field input, .field select { width: 100%; padding: 6px; box-sizing: border-box; }
        .field-error { color: #dc3545; font-size: 0.9em; }
        .banner { padding: 15px; border-radius: 8px; font-weight: bold; margin-bottom: 10px; }
        .banner-success { background-color: #d4edda; color: #155724; }
        .banner-error { background-color: #f8d7da; color: #721c24; }
        .banner-warning { background-color: #fff3cd; color: #856404; font-weight: normal; }
        .metric { display: flex; justify-content: space-between; padding: 8px 0; border-bottom: 1px solid #eee; }
        .metric-label { font-weight: 500; color: #666; }
        .metric-value { font-weight: bold; color: #333; font-size: 1.3em; }
        button { background: #667eea; color: white; border: none; padding: 12px 24px; border-radius: 6px; font-size: 1em; cursor: pointer; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>Loan Approval Predictor</h1>
        <p>Enter the applicant details to predict loan approval and recommended loan value.</p>
    </div>

    {{if .Errors}}
    <div class="card">
        {{range .Errors}}<div class="banner banner-error">{{.}}</div>{{end}}
    </div>
    {{end}}

    {{with .Result}}
    <div class="card">
        <h3>Prediction Result</h3>
        {{if .Approved}}
        <div class="banner banner-success">Loan Approved</div>
        <div class="metric"><span class="metric-label">Recommended Loan Value</span><span class="metric-value">{{.RecommendedValue}}</span></div>
        {{else}}
        <div class="banner banner-error">Loan Rejected</div>
        <div class="banner banner-warning">{{.Warning}}</div>
        {{end}}
        <div class="metric"><span class="metric-label">Approval Probability</span><span class="metric-value">{{.Probability}}</span></div>
    </div>
    {{end}}

    <form method="POST" action="/" class="card">
        <h3>Applicant Details</h3>
        <div class="grid">
        {{range .Fields}}{{$f := .}}
            <div class="field">
                <label for="{{.Name}}">{{.Label}}{{if eq .Input "range"}}: <output id="{{.Name}}_out">{{.Value}}</output>{{end}}</label>
                {{if eq .Input "select"}}
                <select id="{{.Name}}" name="{{.Name}}">
                    {{range .Options}}<option value="{{.}}"{{if eq . $f.Value}} selected{{end}}>{{.}}</option>{{end}}
                </select>
                {{else if eq .Input "range"}}
                <input type="range" id="{{.Name}}" name="{{.Name}}" min="{{.Min}}" max="{{.Max}}" step="{{.Step}}" value="{{.Value}}" oninput="document.getElementById('{{.Name}}_out').value = this.value">
                {{else}}
                <input type="number" id="{{.Name}}" name="{{.Name}}" min="{{.Min}}"{{if .Max}} max="{{.Max}}"{{end}} step="{{.Step}}" value="{{.Value}}">
                {{end}}
                {{if .Error}}<div class="field-error">{{.Error}}</div>{{end}}
            </div>
        {{end}}
        </div>
        <p><button type="submit">Predict Loan Approval</button></p>
    </form>
</div>
</body>
</html>
`

var formPage = template.Must(template.New("form").Parse(formTemplate))

type formField struct {
	Name    string
	Label   string
	Input   string
	Min     string
	Max     string
	Step    string
	Options []string
	Value   string
	Error   string
}

type resultView struct {
	Approved         bool
	Probability      string
	RecommendedValue string
	Warning          string
}

type pageData struct {
	Fields []formField
	Result *resultView
	Errors []string
}

func buildFields(values, fieldErrors map[string]string) []formField {
	out := make([]formField, 0, len(applicant.Fields))
	for _, f := range applicant.Fields {
		ff := formField{
			Name:    f.Name,
			Label:   f.Label,
			Options: f.Options,
			Value:   values[f.Name],
			Error:   fieldErrors[f.Name],
		}
		switch {
		case f.Kind == applicant.Categorical:
			ff.Input = "select"
		case f.Slider:
			ff.Input = "range"
		default:
			ff.Input = "number"
		}
		if f.Kind != applicant.Categorical {
			ff.Min = formatFloat(f.Min)
			ff.Step = formatFloat(f.Step)
			if f.Max != 0 {
				ff.Max = formatFloat(f.Max)
			}
		}
		out = append(out, ff)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func defaultValues() map[string]string {
	values := make(map[string]string, len(applicant.Fields))
	for name, v := range applicant.Defaults() {
		values[name] = applicant.FormatValue(v)
	}
	return values
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formPage.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("failed to render form")
	}
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{Fields: buildFields(defaultValues(), nil)})
}

func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, pageData{
			Fields: buildFields(defaultValues(), nil),
			Errors: []string{"invalid form submission"},
		})
		return
	}

	values := make(map[string]string, len(applicant.Fields))
	fieldErrors := make(map[string]string)
	rec := make(applicant.Record, len(applicant.Fields))
	for _, f := range applicant.Fields {
		raw := r.PostForm.Get(f.Name)
		values[f.Name] = raw
		v, err := f.Parse(raw)
		if err != nil {
			fieldErrors[f.Name] = err.Error()
			continue
		}
		rec[f.Name] = v
	}

	if len(fieldErrors) > 0 {
		s.render(w, http.StatusBadRequest, pageData{
			Fields: buildFields(values, fieldErrors),
			Errors: []string{"Please correct the highlighted fields."},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.predictor.Predict(ctx, rec)
	if err != nil {
		status, body := errorResponse(err)
		log.Warn().Err(err).Str("kind", body.Kind).Msg("form prediction failed")
		s.render(w, status, pageData{
			Fields: buildFields(values, nil),
			Errors: []string{"Prediction failed: " + err.Error()},
		})
		return
	}

	view := &resultView{
		Approved:    res.Approved,
		Probability: report.FormatPercent(res.Probability),
		Warning:     RejectionWarning,
	}
	if res.Approved && res.RecommendedValue != nil {
		view.RecommendedValue = report.FormatCurrency(*res.RecommendedValue)
	}

	s.render(w, http.StatusOK, pageData{Fields: buildFields(values, nil), Result: view})
}
