package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"birthprev/adapters/excel"
	"birthprev/app"
	"birthprev/domain/study"
	"birthprev/internal/errors"
)

func (s *Server) handleEstimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	opts, err := parseOptions(req.Distribution, req.DegeneratePolicy)
	if err != nil {
		s.respondError(c, err)
		return
	}

	est, err := s.service.Estimate(c.Request.Context(), req.Studies, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newEstimateResponse(est))
}

// handleEstimateCSV estimates an uploaded study file and answers with the
// results CSV. Options come from form fields or the query string.
func (s *Server) handleEstimateCSV(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		s.respondError(c, errors.Wrap(err, "failed to open upload"))
		return
	}
	defer file.Close()

	studies, err := s.reader.ReadNamed(header.Filename, file)
	if err != nil {
		s.respondError(c, err)
		return
	}

	opts, err := parseOptions(formOrQuery(c, "distribution"), formOrQuery(c, "degenerate_policy"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	detailed, _ := strconv.ParseBool(formOrQuery(c, "detailed"))

	est, err := s.service.Estimate(c.Request.Context(), studies, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := excel.NewResultWriter(excel.WriterConfig{Detailed: detailed}).WriteCSV(&buf, est.Table); err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="birth_prevalence_%s.csv"`, est.Fingerprint.Short()))
	c.Header("X-Run-ID", est.RunID.String())
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: errors.GetCode(err), Error: err.Error()})
}

func parseOptions(distribution, policy string) (app.EstimateOptions, error) {
	var opts app.EstimateOptions
	var err error
	if distribution != "" {
		if opts.Distribution, err = study.ParseDistribution(distribution); err != nil {
			return opts, err
		}
	}
	if policy != "" {
		if opts.Policy, err = study.ParseDegeneratePolicy(policy); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func formOrQuery(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}

func newEstimateResponse(est *app.Estimate) EstimateResponse {
	return EstimateResponse{
		RunID:            est.RunID.String(),
		Fingerprint:      est.Fingerprint.String(),
		Distribution:     est.Table.Distribution,
		DegeneratePolicy: est.Table.Policy,
		Rows:             est.Table.Rows,
		Summary:          est.Summary(),
		Profile:          est.Profile,
		Stages:           est.Pipeline.Results,
	}
}
