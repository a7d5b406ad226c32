package api

import (
	"net/http"

	"github.com/commitward/commitward/internal/pipeline"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Check ---

type checkRequest struct {
	Diff    string `json:"diff"`
	Message string `json:"message,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type violationJSON struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Line     int    `json:"line,omitempty"`
}

type checkResponse struct {
	Pass       bool             `json:"pass"`
	Type       string           `json:"type"`
	Scope      string           `json:"scope,omitempty"`
	Breaking   bool             `json:"breaking"`
	Confidence float64          `json:"confidence"`
	Draft      string           `json:"draft,omitempty"`
	Violations []violationJSON  `json:"violations"`
	Findings   []findingJSON    `json:"findings"`
	Stats      diffStatsJSON    `json:"stats"`
}

type diffStatsJSON struct {
	Files   int `json:"files"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Diff == "" {
		writeError(w, http.StatusBadRequest, "diff is required")
		return
	}

	result, err := s.pipeline.Run(req.Diff, req.Message, req.Branch)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, checkResponseFrom(result))
}

func checkResponseFrom(result *pipeline.Result) checkResponse {
	nFiles, added, removed := result.ChangeSet.Stats()
	resp := checkResponse{
		Pass:       result.Verdict.Pass(),
		Type:       result.Classification.Type,
		Scope:      result.Classification.PrimaryScope(),
		Breaking:   result.Classification.Breaking,
		Confidence: result.Classification.Confidence,
		Stats:      diffStatsJSON{Files: nFiles, Added: added, Removed: removed},
	}
	if result.Draft != nil {
		resp.Draft = result.Draft.Format()
	}
	for _, v := range result.Verdict.Violations {
		resp.Violations = append(resp.Violations, violationJSON{
			Rule:     v.Rule,
			Severity: v.Severity.String(),
			Message:  v.Message,
			Path:     v.Path,
			Line:     v.Line,
		})
	}
	for _, f := range result.Findings {
		resp.Findings = append(resp.Findings, findingJSON{
			Path: f.Path, Line: f.Line, Pattern: f.Pattern,
			Excerpt: f.Excerpt, Confidence: f.Confidence,
		})
	}
	return resp
}

// --- Classify ---

type classifyRequest struct {
	Diff string `json:"diff"`
}

type classifyResponse struct {
	Type       string   `json:"type"`
	Scopes     []string `json:"scopes,omitempty"`
	Breaking   bool     `json:"breaking"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Diff == "" {
		writeError(w, http.StatusBadRequest, "diff is required")
		return
	}

	result, err := s.pipeline.Run(req.Diff, "", "")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	cl := result.Classification
	writeJSON(w, http.StatusOK, classifyResponse{
		Type:       cl.Type,
		Scopes:     cl.Scopes,
		Breaking:   cl.Breaking,
		Confidence: cl.Confidence,
		Reason:     cl.Reason,
	})
}

// --- Scan ---

type scanRequest struct {
	Diff string `json:"diff"`
}

type findingJSON struct {
	Path       string  `json:"path"`
	Line       int     `json:"line"`
	Pattern    string  `json:"pattern"`
	Excerpt    string  `json:"excerpt"`
	Confidence float64 `json:"confidence"`
}

type scanResponse struct {
	Total    int           `json:"total"`
	Findings []findingJSON `json:"findings"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Diff == "" {
		writeError(w, http.StatusBadRequest, "diff is required")
		return
	}

	result, err := s.pipeline.Run(req.Diff, "", "")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := scanResponse{Total: len(result.Findings)}
	for _, f := range result.Findings {
		resp.Findings = append(resp.Findings, findingJSON{
			Path: f.Path, Line: f.Line, Pattern: f.Pattern,
			Excerpt: f.Excerpt, Confidence: f.Confidence,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
