package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"image"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
)

// Hagaki postcard paper.
const (
	PageWidthMM  = 100
	PageHeightMM = 148
)

// Document is the standalone print document for one composite: the HTML
// page a browser prints and the equivalent single-page PDF for spoolers.
type Document struct {
	Title string
	HTML  []byte
	PDF   []byte
}

var pageTmpl = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
      @page { size: {{.W}}mm {{.H}}mm; margin: 0; }
      body { margin: 0; padding: 0; background-color: white; }
      img { width: {{.W}}mm; height: {{.H}}mm; object-fit: contain; display: block; }
      @media print {
        body { -webkit-print-color-adjust: exact; print-color-adjust: exact; }
      }
    </style>
  </head>
  <body>
    <img id="printImage" src="{{.Src}}" alt="Print Image">
    <script>
      window.onload = function() {
        var img = document.getElementById('printImage');
        var started = false;
        function startPrint() {
          if (started) { return; }
          started = true;
          setTimeout(function() {
            window.print();
            window.onfocus = function() {
              setTimeout(function() { window.close(); }, 500);
            };
          }, {{.SettleMS}});
        }
        if (img.complete) { startPrint(); } else { img.onload = startPrint; }
      };
    </script>
  </body>
</html>
`))

// RenderHTML renders the print page for img.
func RenderHTML(title string, img imagepkg.ComposedImage, settleMS int) ([]byte, error) {
	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		Title    string
		W, H     int
		Src      template.URL
		SettleMS int
	}{title, PageWidthMM, PageHeightMM, template.URL(img.DataURI()), settleMS})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPDF places img on one 100x148mm page, centered and scaled to fit.
// The page keeps its size whatever the image resolution.
func RenderPDF(img imagepkg.ComposedImage) ([]byte, error) {
	imp, err := api.Import(fmt.Sprintf("dim:%d %d, pos:c, sc:1.0 rel", PageWidthMM, PageHeightMM), types.MILLIMETRES)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImages(nil, &buf, []io.Reader{bytes.NewReader(img.PNG)}, imp, conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildDocument verifies the image decodes, then renders both forms.
func BuildDocument(title string, img imagepkg.ComposedImage, settleMS int) (*Document, error) {
	if len(img.PNG) == 0 || !img.Ready {
		return nil, ErrNoImage
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(img.PNG)); err != nil {
		return nil, fmt.Errorf("print image does not decode: %w", err)
	}
	html, err := RenderHTML(title, img, settleMS)
	if err != nil {
		return nil, fmt.Errorf("render print html: %w", err)
	}
	pdf, err := RenderPDF(img)
	if err != nil {
		return nil, fmt.Errorf("render print pdf: %w", err)
	}
	return &Document{Title: title, HTML: html, PDF: pdf}, nil
}
