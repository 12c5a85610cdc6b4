package app

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Weed detection is a placeholder: no model runs on the image.
const (
	WeedDetected  = "General Broadleaf Weed (placeholder)"
	WeedPesticide = "Consult local agri extension. Common options include glyphosate or 2,4-D depending on crop stage and label directions."

	uploadField = "image"
)

var allowedWeedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Upload outcomes, also used as metric labels.
const (
	uploadOK       = "ok"
	uploadRejected = "rejected"
	uploadTooLarge = "too_large"
)

type WeedResult struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	ContentType string       `json:"content_type"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Bytes       int          `json:"bytes"`
	Detected    string       `json:"detected"`
	Pesticide   string       `json:"pesticide"`
	DataURI     template.URL `json:"-"`
}

type uploadError struct {
	code   int
	result string
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

func rejected(format string, args ...any) *uploadError {
	return &uploadError{code: http.StatusBadRequest, result: uploadRejected, msg: fmt.Sprintf(format, args...)}
}

func (g *Gateway) tooLarge() *uploadError {
	return &uploadError{
		code:   http.StatusRequestEntityTooLarge,
		result: uploadTooLarge,
		msg:    fmt.Sprintf("image exceeds %d bytes", g.cfg.UploadMaxBytes),
	}
}

// readWeedUpload validates the multipart "image" field and returns the
// placeholder result for it.
func (g *Gateway) readWeedUpload(w http.ResponseWriter, r *http.Request) (WeedResult, error) {
	limit := g.cfg.UploadMaxBytes
	// margine per header multipart e altri campi
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)
	if err := r.ParseMultipartForm(limit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return WeedResult{}, g.tooLarge()
		}
		return WeedResult{}, rejected("expected a multipart form with an %q file", uploadField)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile(uploadField)
	if err != nil {
		return WeedResult{}, rejected("missing %q file", uploadField)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if !allowedWeedExt[ext] {
		return WeedResult{}, rejected("unsupported file type %q: upload jpg or png", ext)
	}
	if hdr.Size > limit {
		return WeedResult{}, g.tooLarge()
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return WeedResult{}, rejected("could not read upload")
	}
	if int64(len(data)) > limit {
		return WeedResult{}, g.tooLarge()
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return WeedResult{}, rejected("file is not a valid jpg or png image")
	}
	ct := "image/" + format
	return WeedResult{
		ID:          uuid.NewString(),
		Filename:    filepath.Base(hdr.Filename),
		ContentType: ct,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Bytes:       len(data),
		Detected:    WeedDetected,
		Pesticide:   WeedPesticide,
		DataURI:     template.URL("data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)),
	}, nil
}

func (g *Gateway) uploadOutcome(err error) (int, string, string) {
	var ue *uploadError
	if errors.As(err, &ue) {
		return ue.code, ue.result, ue.msg
	}
	return http.StatusBadRequest, uploadRejected, err.Error()
}

// HandleWeedForm handles the upload widget on the form page.
func (g *Gateway) HandleWeedForm(w http.ResponseWriter, r *http.Request) {
	page := g.newPage()
	res, err := g.readWeedUpload(w, r)
	if err != nil {
		code, result, msg := g.uploadOutcome(err)
		g.metrics.WeedUploads.WithLabelValues(result).Inc()
		page.WeedError = msg
		g.render(w, code, "weed.html", page)
		return
	}
	g.metrics.WeedUploads.WithLabelValues(uploadOK).Inc()
	g.log.Infof("http: weed upload id=%s file=%q %dx%d", res.ID, res.Filename, res.Width, res.Height)
	page.Weed = &res
	g.render(w, http.StatusOK, "weed.html", page)
}

func (g *Gateway) HandleWeedAPI(w http.ResponseWriter, r *http.Request) {
	res, err := g.readWeedUpload(w, r)
	if err != nil {
		code, result, msg := g.uploadOutcome(err)
		g.metrics.WeedUploads.WithLabelValues(result).Inc()
		writeJSON(w, code, errorBody{Error: msg})
		return
	}
	g.metrics.WeedUploads.WithLabelValues(uploadOK).Inc()
	writeJSON(w, http.StatusOK, res)
}
