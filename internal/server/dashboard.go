package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/gkobilansky/ab-sim/internal/dashboard"
	"github.com/gkobilansky/ab-sim/internal/report"
	"github.com/gkobilansky/ab-sim/internal/sample"
	"github.com/gkobilansky/ab-sim/internal/stats"
)

// Dashboard template data structures
type layoutData struct {
	Title   string
	CSS     template.CSS
	Content template.HTML
}

type pageData struct {
	Params  sample.Params
	Power   stats.PowerQuery
	Error   string
	Report  *report.Report
	Summary template.HTML
	Bars    []barView
}

type barView struct {
	Group  string
	Height float64
	Label  string
}

func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	data := pageData{Params: s.cfg.Simulation, Power: s.cfg.Power}

	params, power, err := s.parseQuery(r.URL.Query())
	if err != nil {
		s.renderError(w, data, err)
		return
	}
	data.Params, data.Power = params, *power

	rep, err := s.simulate(params, power)
	if err != nil {
		s.renderError(w, data, err)
		return
	}
	data.setReport(rep)

	s.renderDashboard(w, http.StatusOK, "A/B Test Simulator", "report.html", data)
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	data := pageData{Params: s.cfg.Simulation, Power: s.cfg.Power}

	rep, err := s.analyzeUpload(w, r)
	if err != nil {
		s.renderError(w, data, err)
		return
	}
	if rep.SampleSize != nil {
		data.Power = rep.SampleSize.Query
	}
	data.setReport(rep)

	s.renderDashboard(w, http.StatusOK, "Uploaded Test", "report.html", data)
}

func (d *pageData) setReport(rep *report.Report) {
	d.Report = rep
	d.Summary = template.HTML(report.MarkdownHTML(rep))

	// Bars are scaled against the taller one so both stay visible.
	top := 0.0
	for _, b := range rep.Chart {
		if b.Rate > top {
			top = b.Rate
		}
	}
	d.Bars = make([]barView, len(rep.Chart))
	for i, b := range rep.Chart {
		height := 0.0
		if top > 0 {
			height = b.Rate / top * 100
		}
		d.Bars[i] = barView{
			Group:  b.Group,
			Height: height,
			Label:  formatPercentage(b.Rate * 100),
		}
	}
}

func (s *Server) renderError(w http.ResponseWriter, data pageData, err error) {
	status := http.StatusBadRequest
	data.Error = err.Error()
	if !errors.Is(err, stats.ErrInvalidInput) {
		s.logger.Error("report page failed", zap.Error(err))
		status = http.StatusInternalServerError
		data.Error = "Something went wrong while analysing these inputs."
	}
	s.renderDashboard(w, status, "A/B Test Simulator", "report.html", data)
}

func (s *Server) renderDashboard(w http.ResponseWriter, status int, title, contentTemplate string, data interface{}) {
	cssBytes, err := dashboard.Assets.ReadFile("assets/style.css")
	if err != nil {
		http.Error(w, "Failed to load styles", http.StatusInternalServerError)
		return
	}

	contentTmplBytes, err := dashboard.Templates.ReadFile("templates/" + contentTemplate)
	if err != nil {
		http.Error(w, "Failed to load template", http.StatusInternalServerError)
		return
	}

	contentTmpl, err := template.New("content").Parse(string(contentTmplBytes))
	if err != nil {
		http.Error(w, "Failed to parse template", http.StatusInternalServerError)
		return
	}

	var contentBuf bytes.Buffer
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render template: %v", err), http.StatusInternalServerError)
		return
	}

	layoutTmpl, err := template.ParseFS(dashboard.Templates, "templates/layout.html")
	if err != nil {
		http.Error(w, "Failed to parse layout", http.StatusInternalServerError)
		return
	}

	var page bytes.Buffer
	err = layoutTmpl.Execute(&page, layoutData{
		Title:   title,
		CSS:     template.CSS(cssBytes),
		Content: template.HTML(contentBuf.String()),
	})
	if err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.WriteTo(w)
}

func formatPercentage(p float64) string {
	if p < 0.01 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", p)
}
