package content

import (
	"bytes"
	"html/template"
)

var lecturePage = template.Must(template.New("lecture").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  html, body { margin: 0; padding: 0; background: #ffffff; }
  body { width: {{.Width}}px; font-family: "Helvetica Neue", Arial, sans-serif; color: #1f2933; }
  main { box-sizing: border-box; width: 100%; padding: 72px 120px 160px; }
  h1 { font-size: 44px; line-height: 1.2; margin: 0 0 32px; color: #102a43; }
  h2 { font-size: 32px; line-height: 1.25; margin: 48px 0 16px; color: #243b53; }
  p, li { font-size: 26px; line-height: 1.6; }
  ul, ol { padding-left: 36px; }
  strong { color: #0b4f6c; }
</style>
</head>
<body>
<main>
{{.Body}}
</main>
</body>
</html>
`))

// LecturePage wraps a lecture body in a standalone page laid out for width.
// The body is model or fallback output and is inserted as trusted HTML.
func LecturePage(lec Lecture, width int) (string, error) {
	if width <= 0 {
		width = 1280
	}
	var buf bytes.Buffer
	err := lecturePage.Execute(&buf, struct {
		Title string
		Width int
		Body  template.HTML
	}{
		Title: lec.Title,
		Width: width,
		Body:  template.HTML(lec.HTMLBody),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
