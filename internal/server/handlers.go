package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"FilingsMonitor/internal/domain"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "running",
		"time":              time.Now().UTC().Format(time.RFC3339),
		"started_at":        s.startedAt.Format(time.RFC3339),
		"companies_tracked": len(s.pipeline.Companies()),
	})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	companies := make([]map[string]string, 0, len(s.pipeline.Companies()))
	for _, c := range s.pipeline.Companies() {
		companies = append(companies, map[string]string{
			"name":     c.Name,
			"bse_code": c.Code,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (s *Server) handleCompaniesPreview(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	companies := s.pipeline.Companies()
	if limit > 0 && limit < len(companies) {
		companies = companies[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"limit":         limit,
		"total_fetched": len(companies),
		"companies":     companies,
	})
}

func (s *Server) handleRunDownload(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	batch := s.pipeline.RunDownload(r.Context(), limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Download complete",
		"run_id":  batch.RunID,
		"results": batch.Results,
	})
}

func (s *Server) handleRunDownloadSingle(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	company, ok := s.pipeline.CompanyByCode(code)
	if !ok {
		writeError(w, http.StatusNotFound, "company with BSE code "+code+" not found")
		return
	}

	report := s.pipeline.DownloadCompany(r.Context(), company)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Download complete",
		"results": map[string]domain.DownloadReport{company.Name: report},
	})
}

func (s *Server) handleRunMonitor(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	batch := s.pipeline.RunMonitor(r.Context(), limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Monitor check complete",
		"run_id":  batch.RunID,
		"changes": batch.Changes,
	})
}

func (s *Server) handleRunMonitorSingle(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	company, ok := s.pipeline.CompanyByCode(code)
	if !ok {
		writeError(w, http.StatusNotFound, "company with BSE code "+code+" not found")
		return
	}

	report := s.pipeline.MonitorCompany(r.Context(), company)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Monitor check complete",
		"changes": map[string]domain.ChangeReport{company.Name: report},
	})
}

type filingView struct {
	Company  string `json:"company,omitempty"`
	BSECode  string `json:"bse_code,omitempty"`
	Headline string `json:"headline"`
	Date     string `json:"date"`
	Category string `json:"category"`
	PDFURL   string `json:"pdf_url"`
}

func (s *Server) handleAllFilings(w http.ResponseWriter, r *http.Request) {
	from := fromYearDate(r)
	limit := queryInt(r, "limit", 0)

	companies := s.pipeline.Companies()
	if limit > 0 && limit < len(companies) {
		companies = companies[:limit]
	}

	all := make([]filingView, 0)
	for _, company := range companies {
		filings, err := s.pipeline.FinancialFilings(r.Context(), company, from)
		if err != nil {
			s.log.Warn("fetch filings", "company", company.Name, "error", err)
			continue
		}
		for _, f := range filings {
			all = append(all, filingView{
				Company:  company.Name,
				BSECode:  company.Code,
				Headline: f.Headline,
				Date:     f.Date(),
				Category: f.Category,
				PDFURL:   s.attach + f.Attachment,
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Date > all[j].Date })

	writeJSON(w, http.StatusOK, map[string]any{
		"total_filings":     len(all),
		"companies_fetched": len(companies),
		"filings":           all,
	})
}

func (s *Server) handleFilings(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	company, ok := s.pipeline.CompanyByCode(code)
	if !ok {
		writeError(w, http.StatusNotFound, "company with BSE code "+code+" not found")
		return
	}

	filings, err := s.pipeline.FinancialFilings(r.Context(), company, fromYearDate(r))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	views := make([]filingView, 0, len(filings))
	for _, f := range filings {
		views = append(views, filingView{
			Headline: f.Headline,
			Date:     f.Date(),
			Category: f.Category,
			PDFURL:   s.attach + f.Attachment,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"company":       company.Name,
		"bse_code":      company.Code,
		"total_filings": len(views),
		"filings":       views,
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"documents": map[string]any{}})
		return
	}

	result := map[string]any{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files := listFiles(filepath.Join(s.root, entry.Name()))
		result[entry.Name()] = map[string]any{"files": files, "count": len(files)}
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": result})
}

func (s *Server) handleEntityDocuments(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	// Path traversal guard: entity must stay a bare directory name.
	if entity != filepath.Base(entity) || strings.Contains(entity, "..") {
		writeError(w, http.StatusBadRequest, "invalid entity name")
		return
	}

	dir := filepath.Join(s.root, entity)
	if _, err := os.Stat(dir); err != nil {
		writeError(w, http.StatusNotFound, "no documents found for "+entity)
		return
	}

	files := listFiles(dir)
	writeJSON(w, http.StatusOK, map[string]any{
		"company": entity,
		"files":   files,
		"count":   len(files),
	})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	tracked, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snapshots := map[string]any{}
	for key, count := range tracked {
		snapshots[key] = map[string]any{"filings_tracked": count}
	}

	response := map[string]any{"snapshots": snapshots}

	if s.archive != nil {
		history, err := s.archive.RecentChanges(r.Context(), queryInt(r, "limit", 50))
		if err != nil {
			s.log.Warn("load change history", "error", err)
		} else if history != nil {
			response["history"] = history
		}
	}

	writeJSON(w, http.StatusOK, response)
}

type customRequest struct {
	CompanyName string `json:"company_name"`
	SourceURL   string `json:"source_url"`
}

func (s *Server) handleCustomDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCustomRequest(w, r)
	if !ok {
		return
	}

	report := s.pipeline.DownloadCustom(r.Context(), req.CompanyName, req.SourceURL)
	writeJSON(w, http.StatusOK, map[string]any{
		"company":    req.CompanyName,
		"source_url": req.SourceURL,
		"report":     report,
	})
}

func (s *Server) handleCustomMonitor(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCustomRequest(w, r)
	if !ok {
		return
	}

	report := s.pipeline.MonitorCustom(r.Context(), req.CompanyName, req.SourceURL)
	writeJSON(w, http.StatusOK, map[string]any{
		"company":    req.CompanyName,
		"source_url": req.SourceURL,
		"report":     report,
	})
}

func decodeCustomRequest(w http.ResponseWriter, r *http.Request) (customRequest, bool) {
	var req customRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return customRequest{}, false
	}

	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.SourceURL = strings.TrimSpace(req.SourceURL)
	if req.CompanyName == "" || req.SourceURL == "" {
		writeError(w, http.StatusBadRequest, "company_name and source_url are required")
		return customRequest{}, false
	}

	return req, true
}

func fromYearDate(r *http.Request) time.Time {
	year := queryInt(r, "from_year", 0)
	if year <= 0 {
		return time.Time{}
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func listFiles(dir string) []string {
	files := []string{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return files
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, entry.Name())
	}
	return files
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
