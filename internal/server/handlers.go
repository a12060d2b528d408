package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/cutout/pkg/buildinfo"
	"github.com/matzehuels/cutout/pkg/cache"
	"github.com/matzehuels/cutout/pkg/config"
	"github.com/matzehuels/cutout/pkg/dropout"
	"github.com/matzehuels/cutout/pkg/errors"
	imgio "github.com/matzehuels/cutout/pkg/io"
	"github.com/matzehuels/cutout/pkg/observability"
	"github.com/matzehuels/cutout/pkg/pipeline"
	"github.com/matzehuels/cutout/pkg/raster"
)

// =============================================================================
// Wire Types
// =============================================================================

// HolesRequest is the body of POST /v1/holes.
type HolesRequest struct {
	Height int             `json:"height"`
	Width  int             `json:"width"`
	Seed   *uint64         `json:"seed,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// HolesResponse is returned by POST /v1/holes.
type HolesResponse struct {
	Params dropout.Params `json:"params"`
	Seed   uint64         `json:"seed"`
	Cached bool           `json:"cached"`
}

// ApplyResponse is returned by POST /v1/apply. Images are base64 PNG.
type ApplyResponse struct {
	Params    dropout.Params     `json:"params"`
	Seed      uint64             `json:"seed"`
	Cached    bool               `json:"cached"`
	Image     string             `json:"image"`
	Mask      string             `json:"mask,omitempty"`
	Keypoints []dropout.Keypoint `json:"keypoints,omitempty"`
	Dropped   int                `json:"dropped"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	dtypes := make([]string, len(dropout.DTypes))
	for i, d := range dropout.DTypes {
		dtypes[i] = d.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"build":   buildinfo.Get(),
		"targets": dropout.Targets,
		"dtypes":  dtypes,
	})
}

func (s *Server) handleHoles(w http.ResponseWriter, r *http.Request) {
	var req HolesRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.fail(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.Height <= 0 || req.Width <= 0 {
		s.fail(w, errors.New(errors.ErrCodeInvalidInput, "height and width must be positive, got %dx%d", req.Height, req.Width))
		return
	}

	var seed uint64
	if req.Seed != nil {
		if err := pipeline.ValidateSeed(*req.Seed); err != nil {
			s.fail(w, err)
			return
		}
		seed = *req.Seed
	}
	t, seed, err := s.transform(req.Config, seed)
	if err != nil {
		s.fail(w, err)
		return
	}
	p, hit, err := s.runner.Params(r.Context(), t, req.Height, req.Width, seed, false)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HolesResponse{Params: p, Seed: seed, Cached: hit})
}

// handleApply takes multipart fields: image (file, required), mask (file),
// keypoints (JSON array), seed, config (JSON object) and dtype.
// With ?format=png the occluded image is returned as raw PNG.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	var err error
	defer func() { observability.Pipeline().OnJobComplete(ctx, time.Since(start), err) }()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err = r.ParseMultipartForm(s.maxUpload); err != nil {
		err = errors.Wrap(errors.ErrCodeInvalidInput, err, "parse upload")
		s.fail(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var seed uint64
	if v := r.FormValue("seed"); v != "" {
		if seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			err = errors.Wrap(errors.ErrCodeInvalidInput, err, "seed %q", v)
			s.fail(w, err)
			return
		}
		if err = pipeline.ValidateSeed(seed); err != nil {
			s.fail(w, err)
			return
		}
	}
	t, seed, err := s.transform(json.RawMessage(r.FormValue("config")), seed)
	if err != nil {
		s.fail(w, err)
		return
	}

	loadOpts, err := loadOptions(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	imgData, err := formFile(r, "image", true)
	if err != nil {
		s.fail(w, err)
		return
	}
	var in dropout.Input
	if in.Image, err = imgio.DecodeImage(bytes.NewReader(imgData), loadOpts); err != nil {
		s.fail(w, err)
		return
	}
	maskData, err := formFile(r, "mask", false)
	if err != nil {
		s.fail(w, err)
		return
	}
	if maskData != nil {
		if in.Mask, err = imgio.DecodeImage(bytes.NewReader(maskData), imgio.LoadOptions{}); err != nil {
			s.fail(w, err)
			return
		}
		if in.Mask.Height() != in.Image.Height() || in.Mask.Width() != in.Image.Width() {
			err = errors.New(errors.ErrCodeShapeMismatch, "mask is %dx%d but image is %dx%d",
				in.Mask.Height(), in.Mask.Width(), in.Image.Height(), in.Image.Width())
			s.fail(w, err)
			return
		}
	}
	if v := r.FormValue("keypoints"); v != "" {
		if in.Keypoints, err = imgio.ReadKeypoints(strings.NewReader(v)); err != nil {
			s.fail(w, err)
			return
		}
	}

	h, wd := in.Image.Height(), in.Image.Width()
	p, hit, err := s.runner.Params(ctx, t, h, wd, seed, false)
	if err != nil {
		s.fail(w, err)
		return
	}
	res, err := s.runner.Apply(ctx, t, in, p, pipeline.FillRand(seed))
	if err != nil {
		s.fail(w, err)
		return
	}

	paramsKey := s.runner.ParamsKey(t, h, wd, seed)
	img, _, err := s.runner.Encode(ctx, paramsKey, cache.Hash(imgData)+loadOptsTag(loadOpts), dropout.TargetImage, res.Image)
	if err != nil {
		s.fail(w, err)
		return
	}
	if r.URL.Query().Get("format") == "png" {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Cutout-Holes", strconv.Itoa(len(p.Holes)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img)
		return
	}

	resp := ApplyResponse{
		Params:    p,
		Seed:      seed,
		Cached:    hit,
		Image:     base64.StdEncoding.EncodeToString(img),
		Keypoints: res.Keypoints,
		Dropped:   len(in.Keypoints) - len(res.Keypoints),
	}
	if res.Mask != nil {
		var mask []byte
		if mask, _, err = s.runner.Encode(ctx, paramsKey, cache.Hash(maskData), dropout.TargetMask, res.Mask); err != nil {
			s.fail(w, err)
			return
		}
		resp.Mask = base64.StdEncoding.EncodeToString(mask)
	}
	writeJSON(w, http.StatusOK, resp)
}

// transform resolves the request's config and seed against the server
// defaults.
func (s *Server) transform(raw json.RawMessage, seed uint64) (*dropout.CoarseDropout, uint64, error) {
	f := s.defaults
	if len(bytes.TrimSpace(raw)) > 0 {
		// JSON is valid YAML, so the config file parser reads request bodies.
		var err error
		if f, err = config.Parse(raw, "yaml"); err != nil {
			return nil, 0, err
		}
	}
	cfg, err := f.Transform()
	if err != nil {
		return nil, 0, err
	}
	t, err := dropout.New(cfg)
	if err != nil {
		return nil, 0, err
	}
	if seed == 0 {
		seed = s.defaults.Seed
	}
	if seed == 0 {
		seed = pipeline.DefaultSeed
	}
	return t, seed, nil
}

// loadOptions reads the dtype field. as_float=true is the older spelling of
// dtype=float32.
func loadOptions(r *http.Request) (imgio.LoadOptions, error) {
	name := r.FormValue("dtype")
	if name == "" {
		return imgio.LoadOptions{AsFloat: r.FormValue("as_float") == "true"}, nil
	}
	dt, err := raster.ParseDType(name)
	if err != nil {
		return imgio.LoadOptions{}, err
	}
	return imgio.LoadOptions{AsFloat: dt == raster.Float32}, nil
}

func loadOptsTag(o imgio.LoadOptions) string {
	if o.AsFloat {
		return ":f32"
	}
	return ""
}

// formFile reads an uploaded file. Missing optional files yield nil.
func formFile(r *http.Request, field string, required bool) ([]byte, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile && !required {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s upload", field)
	}
	defer f.Close()
	if hdr.Filename != "" {
		if err := errors.ValidateRelativeName(hdr.Filename); err != nil {
			return nil, err
		}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s upload", field)
	}
	return data, nil
}

// =============================================================================
// Responses
// =============================================================================

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request error", "err", err)
		msg = "internal error"
	}
	writeError(w, status, string(code), msg)
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidRange, errors.ErrCodeInvalidFill,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath, errors.ErrCodeShapeMismatch:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
