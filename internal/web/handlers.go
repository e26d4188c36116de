package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/forPelevin/tamilshorts/internal/jobs"
	"github.com/forPelevin/tamilshorts/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/tamilshorts/internal/types"
	"github.com/forPelevin/tamilshorts/internal/watch"
)

var clipNameRE = regexp.MustCompile(`^short_[0-9]+\.mp4$`)

type processRequest struct {
	YouTubeURL string `json:"youtube_url"`
}

type submitResponse struct {
	JobID  uuid.UUID   `json:"job_id"`
	Status jobs.Status `json:"status"`
}

type shortView struct {
	types.Short
	URL         string `json:"url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

type shortsResponse struct {
	JobID  uuid.UUID   `json:"job_id"`
	Source string      `json:"source"`
	RunDir string      `json:"run_dir"`
	Shorts []shortView `json:"shorts"`
}

type indexData struct {
	Latest *shortsResponse
	Jobs   []jobs.Job
	JobID  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{Jobs: s.runner.List(), JobID: r.URL.Query().Get("job")}
	if len(data.Jobs) > 10 {
		data.Jobs = data.Jobs[:10]
	}
	if j, ok := s.runner.Latest(); ok {
		v := latestShorts(j)
		data.Latest = &v
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, data); err != nil {
		s.logger.Error("render index", "error", err)
	}
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	isJSON := isJSONRequest(r)
	var req processRequest
	if isJSON {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		req.YouTubeURL = r.FormValue("youtube_url")
	}
	url := strings.TrimSpace(req.YouTubeURL)
	if url == "" {
		writeError(w, http.StatusBadRequest, "youtube_url is required")
		return
	}
	if !ytdlp.IsURL(url) {
		writeError(w, http.StatusBadRequest, "youtube_url must be an http(s) URL")
		return
	}
	s.submit(w, r, url, isJSON)
}

func (s *Server) handleProcessLocal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !watch.IsVideoFile(name) {
		writeError(w, http.StatusBadRequest, "unsupported file type: "+filepath.Ext(name))
		return
	}
	path, err := s.saveUpload(file, name)
	if err != nil {
		s.logger.Error("save upload", "error", err, "file", name)
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	s.logger.Info("upload stored", "path", path, "bytes", header.Size)
	s.submit(w, r, path, !acceptsHTML(r))
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadsDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(s.cfg.UploadsDir, fmt.Sprintf("%s-%s", uuid.NewString()[:8], name))
	tmp, err := os.CreateTemp(s.cfg.UploadsDir, ".upload-*.part")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dst, nil
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, source string, asJSON bool) {
	j, err := s.runner.Submit(source)
	switch {
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !asJSON {
		http.Redirect(w, r, "/?job="+j.ID.String(), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: j.ID, Status: j.Status})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	j, ok := s.runner.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleShorts(w http.ResponseWriter, r *http.Request) {
	j, ok := s.runner.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no shorts yet")
		return
	}
	writeJSON(w, http.StatusOK, latestShorts(j))
}

func (s *Server) handleShortFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !clipNameRE.MatchString(name) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	j, ok := s.runner.Latest()
	if !ok || j.Result == nil {
		writeError(w, http.StatusNotFound, "no shorts yet")
		return
	}
	path := filepath.Join(j.Result.RunDir, "clips", name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	http.ServeFile(w, r, path)
}

func latestShorts(j jobs.Job) shortsResponse {
	out := shortsResponse{JobID: j.ID, Source: j.Source, Shorts: []shortView{}}
	if j.Result == nil {
		return out
	}
	out.RunDir = j.Result.RunDir
	files := make(map[int]string, len(j.Result.Manifest.Clips))
	for _, c := range j.Result.Manifest.Clips {
		files[c.ShortNumber] = filepath.Base(c.File)
	}
	for _, sh := range j.Result.Shorts {
		v := shortView{Short: sh}
		if f, ok := files[sh.ShortNumber]; ok {
			v.URL = "/shorts/" + f
			v.DownloadURL = v.URL + "?download=1"
		}
		out.Shorts = append(out.Shorts, v)
	}
	return out
}

func isJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
