package router

import (
	"bytes"
	"html/template"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<title>pinnode</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
html{font-family:sans-serif;text-align:center}
.btn{background:#2563eb;color:#fff;border:0;border-radius:8px;padding:12px 20px;font-size:18px;cursor:pointer;margin:6px}
</style>
</head>
<body>
<h1>pinnode</h1>
<p>LED: {{.Indicator}}</p>
<p><a href="/led_builtin/on"><button class="btn">LED ON</button></a><a href="/led_builtin/off"><button class="btn">LED OFF</button></a></p>
<p>Endpoints:{{range .Routes}} <code>{{.}}</code>{{end}}</p>
<p>Allowed pins:{{range .Pins}} {{.}}{{end}}</p>
</body>
</html>
`))

type indexData struct {
	Indicator string
	Routes    []string
	Pins      []int
}

func (r *Router) handleIndex(_ []string) (Response, error) {
	data := indexData{
		Indicator: "OFF",
		Routes:    r.Routes(),
		Pins:      r.actuatable(),
	}
	if r.state.Indicator {
		data.Indicator = "ON"
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		return Response{}, err
	}
	return HTML(buf.Bytes()), nil
}
