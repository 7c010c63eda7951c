package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandlens/internal/detection"
	"github.com/kiranshivaraju/brandlens/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detectPath = "/api/v1/detect"

func postDetect(t *testing.T, det Detector, st TemplateSource, body any, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	return serve(t, NewDetectHandler(det, st), http.MethodPost, detectPath, detectPath, body, userID)
}

func TestDetect_Success(t *testing.T) {
	det := &fakeDetector{}
	userID := uuid.New()
	projectID := uuid.New()

	rec := postDetect(t, det, newFakeStore(), map[string]any{
		"project_id":  projectID.String(),
		"prompt":      "best note-taking apps?",
		"brands":      []string{"Notion", "Obsidian"},
		"providers":   []string{"openai", "deepseek"},
		"mode":        "Sequential",
		"strategy":    "HYBRID",
		"max_tokens":  200,
		"temperature": 0.1,
	}, userID)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	assert.Equal(t, projectID.String(), data["project_id"])
	assert.Equal(t, models.CheckStatusCompleted, data["status"])

	require.NotNil(t, det.got)
	assert.Equal(t, userID, det.got.UserID)
	assert.Equal(t, models.ModeSequential, det.got.Mode)
	assert.Equal(t, "hybrid", det.got.Strategy)
	require.NotNil(t, det.got.MaxTokens)
	assert.Equal(t, 200, *det.got.MaxTokens)
	require.NotNil(t, det.got.Temperature)
	assert.InDelta(t, 0.1, *det.got.Temperature, 1e-9)
}

func TestDetect_RequestValidation(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"empty body", nil, "request body is empty"},
		{"malformed json", "{not json", "invalid JSON body"},
		{"missing project", map[string]any{"prompt": "x"}, "project_id is required"},
		{"bad project", map[string]any{"project_id": "nope", "prompt": "x"}, "project_id must be a valid UUID"},
		{"prompt and template", map[string]any{
			"project_id": uuid.NewString(), "prompt": "x", "template_id": uuid.NewString(),
		}, "mutually exclusive"},
		{"bad template id", map[string]any{
			"project_id": uuid.NewString(), "template_id": "nope",
		}, "template_id must be a valid UUID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fakeDetector{}
			rec := postDetect(t, det, newFakeStore(), tt.body, uuid.New())

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			e := errorOf(t, rec)
			assert.Equal(t, "INVALID_REQUEST", e["code"])
			assert.Contains(t, e["message"], tt.want)
			assert.Nil(t, det.got)
		})
	}
}

func TestDetect_MissingUser(t *testing.T) {
	rec := postDetect(t, &fakeDetector{}, newFakeStore(), map[string]any{"project_id": uuid.NewString()}, uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDetect_ServiceValidationError(t *testing.T) {
	det := &fakeDetector{err: fmt.Errorf("%w: at least one brand is required", detection.ErrValidation)}

	rec := postDetect(t, det, newFakeStore(), map[string]any{
		"project_id": uuid.NewString(),
		"prompt":     "x",
		"providers":  []string{"openai"},
	}, uuid.New())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := errorOf(t, rec)
	assert.Equal(t, "INVALID_REQUEST", e["code"])
	assert.Contains(t, e["message"], "at least one brand is required")
}

func TestDetect_OrchestrationFault(t *testing.T) {
	checkID := uuid.New()
	det := &fakeDetector{err: &detection.FaultError{CheckID: checkID, Reason: "no requested provider is configured"}}

	rec := postDetect(t, det, newFakeStore(), map[string]any{
		"project_id": uuid.NewString(),
		"prompt":     "x",
		"brands":     []string{"Notion"},
		"providers":  []string{"openai"},
	}, uuid.New())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	e := errorOf(t, rec)
	assert.Equal(t, "ORCHESTRATION_FAULT", e["code"])
	details := e["details"].(map[string]any)
	assert.Equal(t, checkID.String(), details["check_id"])
}

func TestDetect_FaultWithoutCheck(t *testing.T) {
	det := &fakeDetector{err: &detection.FaultError{Reason: "create check", Err: detection.ErrPersistence}}

	rec := postDetect(t, det, newFakeStore(), map[string]any{
		"project_id": uuid.NewString(),
		"prompt":     "x",
	}, uuid.New())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	_, hasDetails := errorOf(t, rec)["details"]
	assert.False(t, hasDetails)
}

func TestDetect_UnexpectedError(t *testing.T) {
	det := &fakeDetector{err: errors.New("boom")}

	rec := postDetect(t, det, newFakeStore(), map[string]any{
		"project_id": uuid.NewString(),
		"prompt":     "x",
	}, uuid.New())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorOf(t, rec)["code"])
}

func TestDetect_FromTemplate(t *testing.T) {
	st := newFakeStore()
	tpl := st.addTemplate(uuid.New(), "recs", "general", "Recommend {count} {category} tools")
	det := &fakeDetector{}

	rec := postDetect(t, det, st, map[string]any{
		"project_id":  uuid.NewString(),
		"template_id": tpl.ID.String(),
		"variables":   map[string]string{"count": "3", "category": "note-taking"},
		"brands":      []string{"Notion"},
		"providers":   []string{"openai"},
		"metadata":    map[string]any{"campaign": "q3"},
	}, uuid.New())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, det.got)
	assert.Equal(t, "Recommend 3 note-taking tools", det.got.Prompt)
	assert.Equal(t, tpl.ID.String(), det.got.Metadata["template_id"])
	assert.Equal(t, "q3", det.got.Metadata["campaign"])
	assert.Equal(t, 1, tpl.UsageCount)
}

func TestDetect_TemplateErrors(t *testing.T) {
	st := newFakeStore()
	tpl := st.addTemplate(uuid.New(), "recs", "general", "Recommend {count} tools")

	t.Run("unknown template", func(t *testing.T) {
		rec := postDetect(t, &fakeDetector{}, st, map[string]any{
			"project_id":  uuid.NewString(),
			"template_id": uuid.NewString(),
		}, uuid.New())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing variable", func(t *testing.T) {
		det := &fakeDetector{}
		rec := postDetect(t, det, st, map[string]any{
			"project_id":  uuid.NewString(),
			"template_id": tpl.ID.String(),
		}, uuid.New())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorOf(t, rec)["message"], "count")
		assert.Nil(t, det.got)
	})

	t.Run("failed check does not count a use", func(t *testing.T) {
		det := &fakeDetector{err: fmt.Errorf("%w: at least one brand is required", detection.ErrValidation)}
		rec := postDetect(t, det, st, map[string]any{
			"project_id":  uuid.NewString(),
			"template_id": tpl.ID.String(),
			"variables":   map[string]string{"count": "2"},
		}, uuid.New())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, tpl.UsageCount)
	})
}
