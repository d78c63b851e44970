package snapshot

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/SRHS-SPAM/srh-photo/internal/frames"
	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
)

const (
	// Divisor scales canonical slot geometry down to on-screen size.
	Divisor = 4
	// ContainerID is the element id the rasterizer captures.
	ContainerID = "frame_container"
)

// Placed is one absolutely positioned image in the container.
type Placed struct {
	Src    string
	Alt    string
	Class  string
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Container is the styled region that gets captured: photos positioned
// at slot/Divisor with the frame overlay stacked above them.
type Container struct {
	FrameID string
	Width   float64
	Height  float64
	Photos  []Placed
	Frame   Placed
}

// NewContainer lays out photos for frameID. Photos without a slot are
// dropped; an unknown frame yields a container with the overlay only.
func NewContainer(photos []string, frameID string) *Container {
	tpl := frames.Lookup(frameID)
	c := &Container{
		FrameID: frameID,
		Width:   float64(frames.CanvasWidth) / Divisor,
		Height:  float64(frames.CanvasHeight) / Divisor,
		Frame: Placed{
			Src:    imagepkg.FrameSource(frameID),
			Alt:    "frame",
			Class:  "frame-overlay",
			Width:  float64(frames.CanvasWidth) / Divisor,
			Height: float64(frames.CanvasHeight) / Divisor,
		},
	}
	for i, src := range photos {
		slot, ok := tpl.Slot(i)
		if !ok {
			break
		}
		top, left, w, h := slot.Scaled(Divisor)
		c.Photos = append(c.Photos, Placed{
			Src:    src,
			Alt:    fmt.Sprintf("photo %d", i+1),
			Class:  fmt.Sprintf("photo%d", i+1),
			Top:    top,
			Left:   left,
			Width:  w,
			Height: h,
		})
	}
	return c
}

// Images returns every image in stacking order, frame last.
func (c *Container) Images() []*Placed {
	out := make([]*Placed, 0, len(c.Photos)+1)
	for i := range c.Photos {
		out = append(out, &c.Photos[i])
	}
	return append(out, &c.Frame)
}

var containerTmpl = template.Must(template.New("container").Funcs(template.FuncMap{
	"px": func(v float64) template.CSS {
		return template.CSS(strconv.FormatFloat(v, 'f', -1, 64) + "px")
	},
	// sources are camera data URIs or inlined assets
	"src": func(s string) template.URL {
		return template.URL(s)
	},
}).Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <style>
      html, body { margin: 0; padding: 0; background: transparent; }
      #frame_container { position: relative; overflow: hidden; width: {{px .C.Width}}; height: {{px .C.Height}}; }
      #frame_container img { position: absolute; display: block; }
      #frame_container img.photo { object-fit: cover; }
      #frame_container img.frame-overlay { top: 0; left: 0; width: 100%; height: 100%; }
    </style>
  </head>
  <body>
    <div id="frame_container" class="frame_container">
{{- range .C.Photos}}
      <img src="{{src .Src}}" alt="{{.Alt}}" class="photo {{.Class}}" crossorigin="anonymous" style="top: {{px .Top}}; left: {{px .Left}}; width: {{px .Width}}; height: {{px .Height}};">
{{- end}}
      <img src="{{src .C.Frame.Src}}" alt="{{.C.Frame.Alt}}" class="{{.C.Frame.Class}}" crossorigin="anonymous">
    </div>
  </body>
</html>
`))

// HTML renders the container markup.
func (c *Container) HTML() (string, error) {
	var buf bytes.Buffer
	err := containerTmpl.Execute(&buf, struct {
		C *Container
	}{c})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
