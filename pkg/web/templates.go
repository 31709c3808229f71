package web

import "html/template"

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "layout_head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 48em; padding: 0 1em; }
fieldset { margin-bottom: 1.5em; border: 1px solid #ccc; }
label { display: block; margin-top: .6em; font-weight: bold; }
.description { font-weight: normal; color: #555; font-size: .9em; margin: .2em 0 .4em; }
.error { color: #a00; border: 1px solid #a00; padding: .6em; margin-bottom: 1em; }
.notice { color: #070; border: 1px solid #070; padding: .6em; margin-bottom: 1em; }
input[type=text], input[type=number] { width: 100%; max-width: 30em; }
.course { margin: .4em 0 .4em 1.2em; }
.course label { display: inline; font-weight: normal; }
button { margin-top: 1em; padding: .5em 1.5em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Errors}}<div class="error">{{.}}</div>{{end}}
{{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
{{end}}

{{define "layout_foot"}}</body>
</html>
{{end}}

{{define "settings"}}{{template "layout_head" .}}
<form method="post" action="{{.Action}}">
{{range .Groups}}
<fieldset>
<legend>{{.Title}}</legend>
{{if .Description}}<p class="description">{{.Description}}</p>{{end}}
{{range .Fields}}
<label for="{{.Name}}">{{.Title}}</label>
{{if .Description}}<p class="description">{{.Description}}</p>{{end}}
{{if .IsBool}}
<input type="checkbox" id="{{.Name}}" name="{{.Name}}" value="1"{{if .Checked}} checked{{end}}>
{{else if .IsInt}}
<input type="number" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}">
{{else}}
<input type="text" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}">
{{end}}
{{end}}
</fieldset>
{{end}}
<button type="submit">Save</button>
</form>
{{template "layout_foot" .}}{{end}}

{{define "selection"}}{{template "layout_head" .}}
<p>Your course entitlement matches more than one course, or the course
requires a join confirmation. Please choose how to continue.</p>
<form method="post" action="{{.Action}}">
<input type="hidden" name="session" value="{{.SessionID}}">
{{if .DeepLink}}<input type="hidden" name="id" value="{{.DeepLink}}">{{end}}
{{range $g := .Groups}}
<fieldset>
<legend>Course number {{$g.CourseNumber}}</legend>
{{range $g.Direct}}
<div class="course">
<input type="radio" id="direct-{{.RefID}}" name="direct_{{$g.CourseNumber}}" value="{{.RefID}}">
<label for="direct-{{.RefID}}">Join {{.Title}}</label>
</div>
{{end}}
{{range $g.Confirmation}}
<div class="course">
<input type="checkbox" id="wait-{{.RefID}}" name="wait_{{$g.CourseNumber}}" value="{{.RefID}}">
<label for="wait-{{.RefID}}">Request admission to {{.Title}} (requires confirmation)</label>
</div>
{{end}}
</fieldset>
{{end}}
<button type="submit">Continue</button>
</form>
{{template "layout_foot" .}}{{end}}

{{define "message"}}{{template "layout_head" .}}
<p>{{.Message}}</p>
{{if .BackURL}}<p><a href="{{.BackURL}}">Continue</a></p>{{end}}
{{template "layout_foot" .}}{{end}}
`))
