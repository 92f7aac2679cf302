package ui

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"birthprev/app"
	"birthprev/domain/study"
	"birthprev/internal/errors"
)

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, http.StatusOK, "index.html", newPageData(a.service.Defaults()))
}

func (a *App) handleEstimate(w http.ResponseWriter, r *http.Request) {
	data := newPageData(a.service.Defaults())

	studies, opts, err := a.readForm(w, r)
	if err == nil {
		var est *app.Estimate
		if est, err = a.service.Estimate(r.Context(), studies, opts); err == nil {
			data.Result, err = newResultView(est)
			data.Distribution = string(est.Table.Distribution)
			data.Policy = string(est.Table.Policy)
		}
	}
	if err != nil {
		a.logger.Warn("estimate request failed: %v", err)
		data.Error = err.Error()
		a.renderTemplate(w, errors.HTTPStatus(err), "index.html", data)
		return
	}

	a.renderTemplate(w, http.StatusOK, "index.html", data)
}

// handleDownload re-runs the estimate for the posted input and returns the
// results as a CSV attachment.
func (a *App) handleDownload(w http.ResponseWriter, r *http.Request) {
	studies, opts, err := a.readForm(w, r)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	est, err := a.service.Estimate(r.Context(), studies, opts)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}

	var buf bytes.Buffer
	if err := a.writer.WriteCSV(&buf, est.Table); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="birth_prevalence_%s.csv"`, est.Fingerprint.Short()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// readForm reads the studies from an uploaded "file" or, failing that, from
// the "csv" text field, along with the distribution and policy fields.
func (a *App) readForm(w http.ResponseWriter, r *http.Request) ([]study.Study, app.EstimateOptions, error) {
	var opts app.EstimateOptions

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.config.MaxUploadBytes); err != nil && err != http.ErrNotMultipart {
		return nil, opts, errors.InvalidInput(fmt.Sprintf("could not read form: %v", err))
	}

	var err error
	if v := r.FormValue("distribution"); v != "" {
		if opts.Distribution, err = study.ParseDistribution(v); err != nil {
			return nil, opts, err
		}
	}
	if v := r.FormValue("degenerate_policy"); v != "" {
		if opts.Policy, err = study.ParseDegeneratePolicy(v); err != nil {
			return nil, opts, err
		}
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		studies, err := a.reader.ReadNamed(header.Filename, file)
		return studies, opts, err
	}

	text := r.FormValue("csv")
	if strings.TrimSpace(text) == "" {
		return nil, opts, errors.InvalidInput("choose a study file or paste CSV")
	}
	studies, err := a.reader.ReadCSV(strings.NewReader(text))
	return studies, opts, err
}
