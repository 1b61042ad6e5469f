/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: templates.go
Description: HTML templates for model and query reports. Self-contained pages with inline
styles; probability bars are plain CSS widths so reports open offline.
*/

package reporting

// reportTemplates defines "model.html" and "query.html"
const reportTemplates = `
{{define "style"}}
<style>
    * { margin: 0; padding: 0; box-sizing: border-box; }
    body {
        font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
        background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
        min-height: 100vh;
        color: #333;
    }
    .container { max-width: 1200px; margin: 0 auto; padding: 20px; }
    .card {
        background: rgba(255, 255, 255, 0.95);
        border-radius: 20px;
        padding: 24px;
        margin-bottom: 24px;
        box-shadow: 0 8px 32px rgba(0, 0, 0, 0.1);
    }
    h1 { color: #4a5568; font-size: 2rem; margin-bottom: 8px; }
    h2 { color: #4a5568; font-size: 1.3rem; margin-bottom: 12px; }
    p.meta { color: #718096; }
    table { border-collapse: collapse; width: 100%; }
    th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #e2e8f0; }
    th { color: #4a5568; }
    tr.fallback td { background: #fff5e6; }
    .bar { background: #667eea; height: 10px; border-radius: 5px; }
    .warn { color: #c05621; }
</style>
{{end}}

{{define "model.html"}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}} - Bayesian Network Report</title>
    {{template "style"}}
</head>
<body>
<div class="container">
    <div class="card">
        <h1>{{.Title}}</h1>
        <p class="meta">Run {{.RunID}} &middot; {{.GeneratedAt.Format "2006-01-02 15:04:05"}} &middot; {{.Rows}} rows</p>
    </div>
    <div class="card">
        <h2>Variables</h2>
        <table>
            <tr><th>Name</th><th>States</th><th>Parents</th><th>Children</th></tr>
            {{range .Variables}}
            <tr><td>{{.Name}}</td><td>{{range $i, $s := .States}}{{if $i}}, {{end}}{{$s}}{{end}}</td>
                <td>{{range $i, $p := .Parents}}{{if $i}}, {{end}}{{$p}}{{end}}</td>
                <td>{{range $i, $c := .Children}}{{if $i}}, {{end}}{{$c}}{{end}}</td></tr>
            {{end}}
        </table>
    </div>
    {{if .Fallbacks}}
    <div class="card">
        <h2 class="warn">Fallback columns ({{len .Fallbacks}})</h2>
        <table>
            <tr><th>Variable</th><th>Parent assignment</th><th>Policy</th></tr>
            {{range .Fallbacks}}
            <tr><td>{{.Variable}}</td><td>{{range $k, $v := .Assignment}}{{$k}}={{$v}} {{end}}</td><td>{{.Policy}}</td></tr>
            {{end}}
        </table>
    </div>
    {{end}}
    {{range .CPDs}}
    <div class="card">
        <h2>P({{.Variable}}{{if .Parents}} | {{range $i, $p := .Parents}}{{if $i}}, {{end}}{{$p}}{{end}}{{end}})</h2>
        {{if .Renormalized}}<p class="warn">{{.Renormalized}} column(s) renormalized</p>{{end}}
        <table>
            <tr>{{range .Parents}}<th>{{.}}</th>{{end}}{{range .States}}<th>{{.}}</th>{{end}}</tr>
            {{range .Rows}}
            <tr{{if .Fallback}} class="fallback"{{end}}>{{range .Assignment}}<td>{{.}}</td>{{end}}{{range .Probs}}<td>{{prob .}}</td>{{end}}</tr>
            {{end}}
        </table>
    </div>
    {{end}}
</div>
</body>
</html>
{{end}}

{{define "query.html"}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}} - Bayesian Network Query</title>
    {{template "style"}}
</head>
<body>
<div class="container">
    <div class="card">
        <h1>P({{range $i, $t := .Targets}}{{if $i}}, {{end}}{{$t}}{{end}}{{if .Evidence}} | {{range $k, $v := .Evidence}}{{$k}}={{$v}} {{end}}{{end}})</h1>
        <p class="meta">{{.Engine}} &middot; run {{.RunID}} &middot; {{.Duration}}</p>
    </div>
    <div class="card">
        <table>
            <tr>{{range .Targets}}<th>{{.}}</th>{{end}}<th>Probability</th><th></th></tr>
            {{range .Entries}}
            <tr>{{range .Assignment}}<td>{{.}}</td>{{end}}<td>{{prob .Value}}</td>
                <td style="width:40%"><div class="bar" style="width: {{percent .Value}}%"></div></td></tr>
            {{end}}
        </table>
        <p class="meta">Most probable: {{range $k, $v := .MAP}}{{$k}}={{$v}} {{end}}({{prob .MAPProb}})</p>
    </div>
</div>
</body>
</html>
{{end}}
`
