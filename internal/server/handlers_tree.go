package server

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mj1618/wdadash/internal/device"
	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/gesture"
	"github.com/mj1618/wdadash/internal/highlight"
	"github.com/mj1618/wdadash/internal/model"
)

// treeResponse is the body of GET /tree.
type treeResponse struct {
	UDID     string              `json:"udid"`
	Count    int                 `json:"count"`
	Size     geometry.Size       `json:"size"`
	Fetched  time.Time           `json:"fetched"`
	Elements []model.Element     `json:"elements,omitempty"`
	Flat     []model.FlatElement `json:"flat,omitempty"`
}

// handleTree returns the accessibility tree. Query: refresh, text, roles
// (comma-separated, meta-roles allowed), prune, visible, flat.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	d := s.device(r)
	q := r.URL.Query()
	snap, err := d.Tree(r.Context(), q.Get("refresh") != "")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	elements := snap.Elements
	if q.Get("visible") != "" {
		elements = model.VisibleOnly(elements)
	}
	if roles := splitList(q.Get("roles")); len(roles) > 0 {
		elements = model.FilterByRoles(elements, model.ExpandRoles(roles))
	}
	if q.Get("prune") != "" {
		elements = model.PruneEmptyGroups(elements)
	}
	elements = model.FilterByText(elements, q.Get("text"))
	if elements == nil {
		elements = []model.Element{}
	}

	resp := treeResponse{
		UDID:    d.UDID,
		Count:   model.Count(elements),
		Size:    snap.Size,
		Fetched: snap.FetchedAt,
	}
	if q.Get("flat") != "" {
		resp.Flat = model.FlattenElements(elements)
	} else {
		resp.Elements = elements
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHit hit-tests either a logical point (x, y) or a client point
// (clientX, clientY) within the displayed screenshot rect.
func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	d := s.device(r)
	snap, err := d.Tree(r.Context(), r.URL.Query().Get("refresh") != "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := pointFromQuery(r, snap.Size)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap.HitAt(p))
}

func pointFromQuery(r *http.Request, size geometry.Size) (geometry.Point, error) {
	q := r.URL.Query()
	if q.Get("x") != "" || q.Get("y") != "" {
		x, err := floatParam(q.Get("x"), "x")
		if err != nil {
			return geometry.Point{}, err
		}
		y, err := floatParam(q.Get("y"), "y")
		if err != nil {
			return geometry.Point{}, err
		}
		return geometry.Point{X: x, Y: y}, nil
	}

	vals := make(map[string]float64, 6)
	for _, key := range []string{"clientX", "clientY", "left", "top", "width", "height"} {
		v, err := floatParam(q.Get(key), key)
		if err != nil {
			return geometry.Point{}, fmt.Errorf("%w (pass x and y, or clientX, clientY, left, top, width and height)", err)
		}
		vals[key] = v
	}
	rect := geometry.Rect{Left: vals["left"], Top: vals["top"], Width: vals["width"], Height: vals["height"]}
	if rect.Width <= 0 || rect.Height <= 0 {
		return geometry.Point{}, fmt.Errorf("width and height must be positive")
	}
	return geometry.ClientToDevice(rect, size, vals["clientX"], vals["clientY"]), nil
}

func floatParam(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %q", name, raw)
	}
	return v, nil
}

// handleHighlight draws the element's box over a fresh screenshot.
func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.Atoi(q.Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an element id")
		return
	}
	d := s.device(r)
	snap, err := d.Tree(r.Context(), false)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	el := snap.Find(id)
	if el == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("element %d not found", id))
		return
	}
	box, ok := el.Detail.Box()
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("element %d has no bounds", id))
		return
	}

	img, err := s.screenshotImage(r, d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := highlight.Highlight(img, box, geometry.PixelRatio(img.Bounds().Dx(), snap.Size), highlight.DefaultStyle)
	s.writeImage(w, r, highlight.Scale(out, intQuery(r, "width")))
}

// handleScreenshot returns the current screen. Without width, format or
// annotate the PNG from WDA is passed through untouched. source=backend
// captures through the device backend instead of WDA.
func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d := s.device(r)

	var (
		data []byte
		err  error
	)
	if q.Get("source") == "backend" {
		data, err = s.backend.Screenshot(r.Context(), d.UDID)
	} else {
		data, err = d.Screenshot(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	annotate := q.Get("annotate")
	if q.Get("width") == "" && q.Get("format") == "" && annotate == "" {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(data)
		return
	}

	img, _, err := highlight.Decode(data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if annotate != "" {
		mode := highlight.LabelCoords
		if annotate == "ids" {
			mode = highlight.LabelIDs
		}
		snap, err := d.Tree(r.Context(), false)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		flat := model.FlattenElements(model.PruneEmptyGroups(snap.Elements))
		img = highlight.Annotate(img, flat, geometry.PixelRatio(img.Bounds().Dx(), snap.Size), mode)
	}
	s.writeImage(w, r, highlight.Scale(img, intQuery(r, "width")))
}

func (s *Server) screenshotImage(r *http.Request, d *device.Device) (image.Image, error) {
	data, err := d.Screenshot(r.Context())
	if err != nil {
		return nil, err
	}
	img, _, err := highlight.Decode(data)
	return img, err
}

// writeImage encodes img in the requested format (png by default).
func (s *Server) writeImage(w http.ResponseWriter, r *http.Request, img image.Image) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	var buf bytes.Buffer
	if err := highlight.Encode(&buf, img, format, intQuery(r, "quality")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", highlight.ContentType(format))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func intQuery(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// pointerRequest is one raw pointer event from the dashboard screen.
type pointerRequest struct {
	Phase   string        `json:"phase"`
	ClientX float64       `json:"clientX"`
	ClientY float64       `json:"clientY"`
	Rect    geometry.Rect `json:"rect"`
}

type pointerResponse struct {
	Phase   string         `json:"phase"`
	Point   geometry.Point `json:"point"`
	Gesture gesture.Kind   `json:"gesture,omitempty"`
}

// handlePointer feeds screen events to the device's gesture recognizer.
// Only "up" can perform a gesture synchronously; long presses fire from
// the recognizer's timer.
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	d := s.device(r)
	resp := pointerResponse{Phase: req.Phase}

	if req.Phase == "leave" {
		d.Recognizer.Leave()
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if req.Rect.Width <= 0 || req.Rect.Height <= 0 {
		writeError(w, http.StatusBadRequest, "rect width and height must be positive")
		return
	}
	size, err := d.LogicalSize(r.Context(), false)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp.Point = geometry.ClientToDevice(req.Rect, size, req.ClientX, req.ClientY)

	switch req.Phase {
	case "down":
		d.Recognizer.Down(resp.Point)
	case "move":
		d.Recognizer.Move(resp.Point)
	case "up":
		kind, err := d.Recognizer.Up(r.Context(), resp.Point)
		resp.Gesture = kind
		if kind != gesture.KindNone {
			ObserveGesture(string(kind), err)
			d.Invalidate()
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "phase must be down, move, up or leave")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
