package server

import (
	"crypto/rand"
	"encoding/base64"
	stderrors "errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	jobtailorErrors "jobtailor/internal/errors"
	"jobtailor/internal/pipeline"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 10 * time.Minute
)

// tailorResumeHandler runs the full pipeline for one job URL
func (s *Server) tailorResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.deps.Observability.Tracer("jobtailor.api").Start(r.Context(), "api.tailor_resume")
	defer span.End()

	if s.deps.Pipeline == nil {
		writeErrorResponse(w, "Service unavailable", "tailoring pipeline is not configured", http.StatusServiceUnavailable)
		return
	}

	var req TailorResumeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.JobURL) == "" {
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "jobUrl is required", "", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("job.url", req.JobURL))

	result, err := s.deps.Pipeline.TailorForJob(ctx, req.JobURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.writeTailorError(w, err)
		return
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Bool("job.extraction_failed", result.ExtractionFailed),
	)

	writeJSON(w, http.StatusOK, TailorResumeResponse{
		Success:        true,
		Message:        "Resume and cover letter tailored successfully",
		ResumeURL:      result.ResumeURL,
		CoverLetterURL: result.CoverLetterURL,
		JobDetails: JobDetails{
			Company: result.JobCompany,
			Title:   result.JobTitle,
		},
		ExtractionFailed: result.ExtractionFailed,
	})
}

// writeTailorError maps a pipeline failure to its HTTP response
func (s *Server) writeTailorError(w http.ResponseWriter, err error) {
	var appErr *jobtailorErrors.AppError
	if stderrors.As(err, &appErr) && appErr.Type == jobtailorErrors.ErrorTypeValidation {
		writeErrorResponse(w, appErr.Message, "", http.StatusBadRequest)
		return
	}

	response := ErrorResponse{
		Error:   "Failed to tailor resume",
		Message: err.Error(),
	}
	var stageErr *pipeline.StageError
	if stderrors.As(err, &stageErr) {
		response.Message = stageErr.Message
		response.Stage = stageErr.Stage
	}
	writeJSON(w, http.StatusInternalServerError, response)
}

// extractJobHandler returns the JobRecord extracted from a job URL
func (s *Server) extractJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.deps.Observability.Tracer("jobtailor.api").Start(r.Context(), "api.extract_job")
	defer span.End()

	if s.deps.Jobs == nil {
		writeErrorResponse(w, "Service unavailable", "job extraction is not configured", http.StatusServiceUnavailable)
		return
	}

	var req ExtractJobRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	jobURL := strings.TrimSpace(req.JobURL)
	if jobURL == "" {
		writeErrorResponse(w, "jobUrl is required", "", http.StatusBadRequest)
		return
	}

	record := s.deps.Jobs.Fetch(ctx, jobURL)
	if record.ExtractionFailed {
		s.deps.Observability.Metrics().RecordDegradedFetch(ctx)
	}
	span.SetAttributes(
		attribute.String("job.url", jobURL),
		attribute.Bool("job.extraction_failed", record.ExtractionFailed),
	)

	writeJSON(w, http.StatusOK, record)
}

// authRedirectHandler starts the Google consent flow
func (s *Server) authRedirectHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.OAuth == nil {
		writeErrorResponse(w, "Service unavailable", "Google OAuth is not configured", http.StatusServiceUnavailable)
		return
	}

	state, err := newOAuthState()
	if err != nil {
		s.Logger.LogError(err, "Failed to generate OAuth state")
		writeErrorResponse(w, "Internal error", "could not start authorization", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(oauthStateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.deps.OAuth.AuthURL(state), http.StatusFound)
}

var oauthResultPage = template.Must(template.New("oauth").Parse(`<!DOCTYPE html>
<html>
<head><title>Authorization Successful</title></head>
<body>
<h1>Authorization Successful!</h1>
<p>Add the following to your environment or configuration:</p>
<pre>GOOGLE_REFRESH_TOKEN={{.RefreshToken}}</pre>
{{if not .RefreshToken}}<p>No refresh token was returned. Revoke the application's access in your Google account and authorize again.</p>{{end}}
</body>
</html>
`))

// oauthCallbackHandler exchanges the authorization code and shows the refresh token
func (s *Server) oauthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.OAuth == nil {
		writeErrorResponse(w, "Service unavailable", "Google OAuth is not configured", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		writeErrorResponse(w, "Authorization denied", reason, http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeErrorResponse(w, "Missing authorization code", "code query parameter is required", http.StatusBadRequest)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != query.Get("state") {
		s.Logger.Warn("OAuth callback with mismatched state", "client_ip", getClientIP(r))
		writeErrorResponse(w, "Invalid OAuth state", "state does not match the authorization request", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	token, err := s.deps.OAuth.Exchange(r.Context(), code)
	if err != nil {
		s.Logger.LogError(err, "OAuth code exchange failed")
		writeErrorResponse(w, "Failed to exchange authorization code", err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("OAuth authorization completed", "refresh_token_issued", token.RefreshToken != "")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := oauthResultPage.Execute(w, struct{ RefreshToken string }{token.RefreshToken}); err != nil {
		s.Logger.LogError(err, "Failed to render OAuth result page")
	}
}

// newOAuthState returns a random value binding the callback to the browser that started the flow
func newOAuthState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
