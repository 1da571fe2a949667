package notifications

var commonTemplates = map[string]string{
	`default`: `
{{- with .Summary -}}
{{.UpdateAvailable}} of {{.Checked}} images have updates available
{{- end -}}
{{- range .Updates}}
- {{.Reference}}: {{ShortDigest .CurrentDigest}} -> {{ShortDigest .LatestDigest}}
{{- end -}}`,

	`porcelain.v1.summary`: `
{{- range .Updates}}
{{- .Reference}} {{.LatestDigest}}{{println}}
{{- end -}}`,

	`json.v1`: `{{ .Report | ToJSON }}`,
}
