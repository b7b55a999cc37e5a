package server

import (
	"net/http"

	"github.com/mj1618/wdadash/internal/wda"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.device(r).WDA.Status(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleWindowSize(w http.ResponseWriter, r *http.Request) {
	size, err := s.device(r).LogicalSize(r.Context(), r.URL.Query().Get("refresh") != "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, size)
}

func (s *Server) handleActiveApp(w http.ResponseWriter, r *http.Request) {
	info, err := s.device(r).WDA.ActiveAppInfo(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// gestureRequest covers every explicit gesture body; each handler checks
// the fields it needs.
type gestureRequest struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	X1       *float64 `json:"x1"`
	Y1       *float64 `json:"y1"`
	X2       *float64 `json:"x2"`
	Y2       *float64 `json:"y2"`
	Duration int      `json:"duration"`
}

func (g gestureRequest) point() (x, y float64, ok bool) {
	if g.X == nil || g.Y == nil {
		return 0, 0, false
	}
	return *g.X, *g.Y, true
}

func (g gestureRequest) line() (x1, y1, x2, y2 float64, ok bool) {
	if g.X1 == nil || g.Y1 == nil || g.X2 == nil || g.Y2 == nil {
		return 0, 0, 0, 0, false
	}
	return *g.X1, *g.Y1, *g.X2, *g.Y2, true
}

// gesture decodes the body, runs perform and reports the outcome. The
// cached tree is dropped because the screen has likely changed.
func (s *Server) gesture(w http.ResponseWriter, r *http.Request, action string, perform func(*wda.Client, gestureRequest) (bool, error)) {
	var req gestureRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	d := s.device(r)
	ok, err := perform(d.WDA, req)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing coordinates for "+action)
		return
	}
	ObserveGesture(action, err)
	d.Invalidate()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, Action: action})
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	s.gesture(w, r, "tap", func(c *wda.Client, g gestureRequest) (bool, error) {
		x, y, ok := g.point()
		if !ok {
			return false, nil
		}
		return true, c.Tap(r.Context(), x, y)
	})
}

func (s *Server) handleDoubleTap(w http.ResponseWriter, r *http.Request) {
	s.gesture(w, r, "double-tap", func(c *wda.Client, g gestureRequest) (bool, error) {
		x, y, ok := g.point()
		if !ok {
			return false, nil
		}
		return true, c.DoubleTap(r.Context(), x, y)
	})
}

func (s *Server) handleLongPress(w http.ResponseWriter, r *http.Request) {
	s.gesture(w, r, "long-press", func(c *wda.Client, g gestureRequest) (bool, error) {
		x, y, ok := g.point()
		if !ok {
			return false, nil
		}
		return true, c.LongPress(r.Context(), x, y, g.Duration)
	})
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	s.gesture(w, r, "swipe", func(c *wda.Client, g gestureRequest) (bool, error) {
		x1, y1, x2, y2, ok := g.line()
		if !ok {
			return false, nil
		}
		return true, c.Swipe(r.Context(), x1, y1, x2, y2)
	})
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	s.gesture(w, r, "drag", func(c *wda.Client, g gestureRequest) (bool, error) {
		x1, y1, x2, y2, ok := g.line()
		if !ok {
			return false, nil
		}
		return true, c.Drag(r.Context(), x1, y1, x2, y2, g.Duration)
	})
}

func (s *Server) handleButton(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if !wda.ValidButton(req.Name) {
		writeError(w, http.StatusBadRequest, "unknown button "+req.Name+" (use home, volumeUp or volumeDown)")
		return
	}
	d := s.device(r)
	if err := d.WDA.PressButton(r.Context(), req.Name); err != nil {
		s.fail(w, r, err)
		return
	}
	d.Invalidate()
	writeJSON(w, http.StatusOK, okResponse{OK: true, Action: "button"})
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	d := s.device(r)
	locked, err := d.WDA.TogglePower(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d.Invalidate()
	writeJSON(w, http.StatusOK, map[string]bool{"locked": locked})
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSiri(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	d := s.device(r)
	if err := d.WDA.SiriActivate(r.Context(), req.Text); err != nil {
		s.fail(w, r, err)
		return
	}
	d.Invalidate()
	writeJSON(w, http.StatusOK, okResponse{OK: true, Action: "siri"})
}

func (s *Server) handleGetPasteboard(w http.ResponseWriter, r *http.Request) {
	text, err := s.device(r).Pasteboard.Read(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, textRequest{Text: text})
}

func (s *Server) handleSetPasteboard(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := s.device(r).Pasteboard.Write(r.Context(), req.Text); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, Action: "pasteboard"})
}
