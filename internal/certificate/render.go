package certificate

import (
	"context"
	"fmt"
	"os"
	"text/template"
)

var svgTemplate = template.Must(template.New("certificate").Funcs(template.FuncMap{
	"esc": template.HTMLEscapeString,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="1123" height="794" viewBox="0 0 1123 794">
  <rect x="0" y="0" width="1123" height="794" fill="#fdfbf5"/>
  <rect x="32" y="32" width="1059" height="730" fill="none" stroke="#1f4e79" stroke-width="6"/>
  <text x="561" y="190" font-family="Georgia, serif" font-size="56" text-anchor="middle" fill="#1f4e79">Certificate of Completion</text>
  <text x="561" y="290" font-family="Georgia, serif" font-size="24" text-anchor="middle" fill="#333">This certifies that</text>
  <text x="561" y="370" font-family="Georgia, serif" font-size="44" text-anchor="middle" fill="#111">{{esc .LearnerName}}</text>
  <text x="561" y="440" font-family="Georgia, serif" font-size="24" text-anchor="middle" fill="#333">has successfully completed the course</text>
  <text x="561" y="510" font-family="Georgia, serif" font-size="36" text-anchor="middle" fill="#1f4e79">{{esc .CourseName}}</text>
  <text x="120" y="690" font-family="Helvetica, sans-serif" font-size="18" fill="#555">Date: {{.Date.Format "January 2, 2006"}}</text>
  <text x="1003" y="690" font-family="Helvetica, sans-serif" font-size="18" text-anchor="end" fill="#555">ID: {{esc .CertID}}</text>
</svg>
`))

// SVGRenderer writes certificates as SVG files in Dir, or the system temp
// directory when Dir is empty.
type SVGRenderer struct {
	Dir string
}

// Render implements Renderer.
func (r SVGRenderer) Render(ctx context.Context, f Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, err := os.CreateTemp(r.Dir, "certificate-*.svg")
	if err != nil {
		return "", fmt.Errorf("create certificate file: %w", err)
	}

	if err := svgTemplate.Execute(file, f); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("render certificate: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("close certificate file: %w", err)
	}
	return file.Name(), nil
}
