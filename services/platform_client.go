package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/shared"
	"github.com/sirupsen/logrus"
)

// StatusFetcher is the read side of the platform boundary. The status store
// depends on this interface so tests can substitute a fake transport.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, token string) (*models.ApplicationStatusSnapshot, error)
}

// AuthResolver resolves a bearer token into a session identity. Identity
// issuance itself is owned by the platform; the gateway only reads it.
type AuthResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*models.Identity, error)
}

// PlatformClient talks to the legal-assistance platform's REST API. All
// requests carry the caller's bearer token; mutations additionally carry a
// client-generated idempotency key.
type PlatformClient struct {
	BaseURL       string
	ClientFactory *shared.HTTPClientFactory
	RateLimiter   *shared.UpstreamRateLimiter
	RequestTimeout time.Duration
}

// NewPlatformClient creates a platform client with the given upstream
// configuration.
func NewPlatformClient(config *shared.PlatformConfig) *PlatformClient {
	return &PlatformClient{
		BaseURL:       strings.TrimRight(config.BaseURL, "/"),
		ClientFactory: shared.NewHTTPClientFactory(config.HTTPRequestTimeout),
		RateLimiter:   shared.NewUpstreamRateLimiter(config.RequestRateLimit),
		RequestTimeout: config.HTTPRequestTimeout,
	}
}

// FetchStatus reads the authoritative application status for the token's
// user. Non-2xx responses, malformed bodies, and snapshots violating the
// has-application invariant are all fetch failures.
func (pc *PlatformClient) FetchStatus(ctx context.Context, token string) (*models.ApplicationStatusSnapshot, error) {
	var snapshot models.ApplicationStatusSnapshot
	if err := pc.getJSON(ctx, token, "/api/lawyer-applications/me", &snapshot); err != nil {
		return nil, err
	}

	if snapshot.HasApplication != (snapshot.Application != nil) {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryUpstream,
			"MALFORMED_SNAPSHOT",
			"snapshot violates has-application invariant",
			"FetchStatus",
			true,
			nil,
		)
	}

	return &snapshot, nil
}

// ResolveIdentity resolves the token into the platform-side identity.
func (pc *PlatformClient) ResolveIdentity(ctx context.Context, token string) (*models.Identity, error) {
	var identity models.Identity
	if err := pc.getJSON(ctx, token, "/api/auth/me", &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// SubmitApplication submits a lawyer application. The ID card and selfie
// fields reference paths returned by the upload endpoints.
func (pc *PlatformClient) SubmitApplication(ctx context.Context, token string, form *models.SubmissionForm) (*models.MutationResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := map[string]string{
		"full_name":         form.FullName,
		"roll_number":       form.RollNumber,
		"roll_signing_date": form.RollSigningDate,
		"id_card_path":      form.IDCardPath,
		"selfie_path":       form.SelfiePath,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	return pc.postMutation(ctx, token, "/api/lawyer-applications/submit", body, writer.FormDataContentType())
}

// AcknowledgeRejection records the user's acknowledgement of a rejected
// application. The caller must invalidate the status cache on success.
func (pc *PlatformClient) AcknowledgeRejection(ctx context.Context, token string) (*models.MutationResult, error) {
	return pc.postMutation(ctx, token, "/api/lawyer-applications/acknowledge-rejection", nil, "")
}

// ClearPendingFlag clears the pending-lawyer marker on the user's profile
// after an accepted or rejected outcome was acknowledged.
func (pc *PlatformClient) ClearPendingFlag(ctx context.Context, token string) (*models.MutationResult, error) {
	return pc.postMutation(ctx, token, "/api/lawyer-applications/clear-pending", nil, "")
}

// Document kinds accepted by UploadDocument.
const (
	DocumentKindIBPID  = "ibp-id"
	DocumentKindSelfie = "selfie"
)

// UploadDocument uploads an identity document. Only JPEG and PNG content is
// accepted; the content is sniffed before any upstream call so a GIF renamed
// to .jpg is still rejected.
func (pc *PlatformClient) UploadDocument(ctx context.Context, token, kind, filename string, content []byte) (*models.UploadResult, error) {
	if kind != DocumentKindIBPID && kind != DocumentKindSelfie {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation,
			"UNKNOWN_DOCUMENT_KIND",
			fmt.Sprintf("unknown document kind %q", kind),
			"UploadDocument",
			false,
			nil,
		)
	}

	contentType := http.DetectContentType(content)
	if contentType != "image/jpeg" && contentType != "image/png" {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation,
			"UNSUPPORTED_IMAGE_TYPE",
			fmt.Sprintf("only JPEG and PNG images are accepted, got %s", contentType),
			"UploadDocument",
			false,
			nil,
		)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	pc.RateLimiter.Wait()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.BaseURL+"/api/lawyer-applications/upload/"+kind, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	shared.SetPlatformHeaders(request, token)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("X-Idempotency-Key", uuid.NewString())

	var result models.UploadResult
	if err := pc.do(request, "UploadDocument", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (pc *PlatformClient) postMutation(ctx context.Context, token, path string, body io.Reader, contentType string) (*models.MutationResult, error) {
	pc.RateLimiter.Wait()

	if body == nil {
		body = strings.NewReader("{}")
		contentType = "application/json"
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	shared.SetPlatformHeaders(request, token)
	request.Header.Set("Content-Type", contentType)
	request.Header.Set("X-Idempotency-Key", uuid.NewString())

	var result models.MutationResult
	if err := pc.do(request, "POST "+path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (pc *PlatformClient) getJSON(ctx context.Context, token, path string, out interface{}) error {
	pc.RateLimiter.Wait()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	shared.SetPlatformHeaders(request, token)

	return pc.do(request, "GET "+path, out)
}

func (pc *PlatformClient) do(request *http.Request, operation string, out interface{}) error {
	client := pc.ClientFactory.Client(pc.RequestTimeout)

	start := time.Now()
	response, err := client.Do(request)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryNetwork, "REQUEST_FAILED", operation, true)
	}
	defer response.Body.Close()

	logrus.WithFields(logrus.Fields{
		"component":   "PlatformClient",
		"operation":   operation,
		"status_code": response.StatusCode,
		"duration":    time.Since(start),
	}).Debug("Platform API call completed")

	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		return shared.NewServiceError(
			shared.ErrorCategoryAuthentication,
			"UNAUTHENTICATED",
			fmt.Sprintf("platform rejected credentials with HTTP %d", response.StatusCode),
			operation,
			false,
			nil,
		)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return shared.NewServiceError(
			shared.ErrorCategoryUpstream,
			"UNEXPECTED_STATUS",
			fmt.Sprintf("platform returned HTTP %d", response.StatusCode),
			operation,
			true,
			nil,
		)
	}

	payload, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryNetwork, "READ_BODY_FAILED", operation, true)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return shared.WrapError(err, shared.ErrorCategoryUpstream, "MALFORMED_RESPONSE", operation, true)
	}

	return nil
}
