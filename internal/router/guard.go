package router

import (
	"html/template"
	"net/http"
)

var guardPage = template.Must(template.New("guard").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Card Flasher is not configured</title></head>
<body>
<h1>Card Flasher is not configured</h1>
<p>Set the following environment variables and restart the server:</p>
<ul>
{{- range .}}
<li><code>{{.}}</code></li>
{{- end}}
</ul>
</body>
</html>
`))

// Missing lists the environment variables a bare install still needs.
func Missing(dbConfigured, genConfigured bool) []string {
	var out []string
	if !dbConfigured {
		out = append(out, "DATABASE_URL (or POSTGRES_URL)")
	}
	if !genConfigured {
		out = append(out, "GOOGLE_API_KEY")
	}
	return out
}

// GuardHandler answers every request but /health with a 503 page naming
// the missing configuration.
func GuardHandler(missing []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = guardPage.Execute(w, missing)
	})
	return SecurityHeadersMiddleware()(mux)
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
