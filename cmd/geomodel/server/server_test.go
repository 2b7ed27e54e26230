package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"geo-tools/cmd/geomodel/generate"
	"geo-tools/cmd/geomodel/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strata = `ROCK R1 [ name: "Shale"; type: sedimentary ]
ROCK R2 [ name: "Sandstone"; type: sedimentary ]
ROCK R3 [ name: "Limestone"; type: sedimentary ]
DEPOSITION D1 [ rock: R1 ]
DEPOSITION D2 [ rock: R2; after: D1 ]
EROSION E1 [ after: D2 ]
DEPOSITION D3 [ rock: R3; after: E1 ]
`

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

type replies []string

func (r *replies) Complete(context.Context, string, string) (string, error) {
	next := (*r)[0]
	*r = (*r)[1:]
	return next, nil
}

func newTestServer(t *testing.T, withRepo bool, gen *generate.Generator) *Server {
	t.Helper()
	deps := Deps{Generator: gen}
	if withRepo {
		db, err := store.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		})
		deps.Repo = store.NewRepository(db)
	}
	return New(deps)
}

// do sends body as JSON and decodes the reply into out when out is non-nil.
func do(t *testing.T, s *Server, method, path string, body any, out any) int {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	t.Run("without storage", func(t *testing.T) {
		var resp HealthResponse
		code := do(t, newTestServer(t, false, nil), http.MethodGet, "/health", nil, &resp)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "disabled", resp.Database)
		assert.Equal(t, "disabled", resp.Generation)
	})

	t.Run("with storage", func(t *testing.T) {
		var resp HealthResponse
		do(t, newTestServer(t, true, nil), http.MethodGet, "/health", nil, &resp)
		assert.Equal(t, "ok", resp.Database)
	})
}

func TestGrammar(t *testing.T) {
	var resp map[string]string
	code := do(t, newTestServer(t, false, nil), http.MethodGet, "/api/dsl/grammar", nil, &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, resp["grammar"], "INTRUSION")
	assert.Contains(t, resp["example"], "ROCK R1")
}

func TestParse(t *testing.T) {
	s := newTestServer(t, false, nil)

	t.Run("valid", func(t *testing.T) {
		var resp ParseResponse
		code := do(t, s, http.MethodPost, "/api/dsl/parse", DSLRequest{DSL: strata}, &resp)
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, resp.Valid)
		assert.Empty(t, resp.Errors)
		require.NotNil(t, resp.Summary)
		assert.Equal(t, ProgramSummary{Rocks: 3, Depositions: 3, Erosions: 1}, *resp.Summary)
	})

	t.Run("syntax error is a finding", func(t *testing.T) {
		var resp ParseResponse
		code := do(t, s, http.MethodPost, "/api/dsl/validate", DSLRequest{DSL: `ROCK R1 [ name: "A"`}, &resp)
		assert.Equal(t, http.StatusOK, code)
		assert.False(t, resp.Valid)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "syntax", resp.Errors[0].Kind)
		assert.Equal(t, 1, resp.Errors[0].Line)
		assert.Nil(t, resp.Summary)
	})

	t.Run("semantic errors carry suggestions", func(t *testing.T) {
		var resp ParseResponse
		src := "ROCK R1 [ name: \"A\"; type: volcanic ]\nDEPOSITION D1 [ rock: R2 ]"
		do(t, s, http.MethodPost, "/api/dsl/parse", DSLRequest{DSL: src}, &resp)
		assert.False(t, resp.Valid)
		require.Len(t, resp.Errors, 1)
		d := resp.Errors[0]
		assert.Equal(t, "undefined_reference", d.Kind)
		assert.Equal(t, 2, d.Line)
		assert.Equal(t, []string{"R1"}, d.Suggestions)
	})

	t.Run("empty body", func(t *testing.T) {
		code := do(t, s, http.MethodPost, "/api/dsl/parse", DSLRequest{}, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestFormat(t *testing.T) {
	s := newTestServer(t, false, nil)

	var resp FormatResponse
	code := do(t, s, http.MethodPost, "/api/dsl/format", DSLRequest{DSL: "ROCK   R1 [name:\"A\"]"}, &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ROCK R1 [ name: \"A\"; type: sedimentary ]\n", resp.DSL)

	var bad SyntaxErrorResponse
	code = do(t, s, http.MethodPost, "/api/dsl/format", DSLRequest{DSL: "ROCK"}, &bad)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Len(t, bad.Errors, 1)
}

func TestTransform(t *testing.T) {
	s := newTestServer(t, true, nil)

	t.Run("config only", func(t *testing.T) {
		var resp TransformResponse
		code := do(t, s, http.MethodPost, "/api/models/transform", TransformRequest{DSL: strata, Name: "coast"}, &resp)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, resp.Check.Valid)
		assert.Equal(t, "coast", resp.Model.Name)
		assert.Equal(t, []string{"D1", "D2", "E1", "D3"}, resp.Model.EventOrder)
		require.Len(t, resp.Model.StructuralGroups, 2)
		assert.Equal(t, "ONLAP", resp.Model.StructuralGroups[0].Relation)
		assert.Empty(t, resp.Model.SurfacePoints)
		assert.Nil(t, resp.ModelID)
	})

	t.Run("spatial and save", func(t *testing.T) {
		seed := uint64(7)
		req := TransformRequest{DSL: strata, Name: "coast", Spatial: true, Seed: &seed, PointsPerSurface: 6, Save: true}
		var resp TransformResponse
		code := do(t, s, http.MethodPost, "/api/models/transform", req, &resp)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, resp.Model.SurfacePoints, 18)
		assert.NotEmpty(t, resp.Model.Orientations)
		require.NotNil(t, resp.ModelID)
		require.NotNil(t, resp.DSLDocumentID)

		var got ModelResponse
		code = do(t, s, http.MethodGet, "/api/models/"+itoa(*resp.ModelID), nil, &got)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "computed", got.Summary.Status)
		assert.Equal(t, 18, got.Summary.SurfacePointCount)
		assert.Equal(t, resp.DSLDocumentID, got.Model.DSLDocumentID)
	})

	t.Run("invalid DSL", func(t *testing.T) {
		var resp SemanticErrorResponse
		code := do(t, s, http.MethodPost, "/api/models/transform", TransformRequest{DSL: "DEPOSITION D1 [ rock: R1 ]"}, &resp)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.NotEmpty(t, resp.Errors)
	})

	t.Run("too few surfaces", func(t *testing.T) {
		var resp messageResponse
		src := "ROCK R1 [ name: \"A\"; type: sedimentary ]\nDEPOSITION D1 [ rock: R1 ]"
		code := do(t, s, http.MethodPost, "/api/models/transform", TransformRequest{DSL: src}, &resp)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, resp.Message, "surfaces")
	})

	t.Run("bad extent", func(t *testing.T) {
		req := TransformRequest{DSL: strata, Extent: &ExtentJSON{XMin: 10, XMax: 0, YMin: 0, YMax: 1, ZMin: -1, ZMax: 0}}
		code := do(t, s, http.MethodPost, "/api/models/transform", req, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	})
}

func TestModels(t *testing.T) {
	s := newTestServer(t, true, nil)

	var transformed TransformResponse
	do(t, s, http.MethodPost, "/api/models/transform", TransformRequest{DSL: strata, Name: "coast"}, &transformed)

	var created CreateModelResponse
	code := do(t, s, http.MethodPost, "/api/models", transformed.Model, &created)
	require.Equal(t, http.StatusCreated, code)
	require.NotZero(t, created.ID)
	id := itoa(created.ID)

	t.Run("list", func(t *testing.T) {
		var list []ModelSummaryJSON
		code := do(t, s, http.MethodGet, "/api/models?limit=5", nil, &list)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, list, 1)
		assert.Equal(t, "pending", list[0].Status)
		assert.Equal(t, 3, list[0].SurfaceCount)
	})

	t.Run("status", func(t *testing.T) {
		code := do(t, s, http.MethodPatch, "/api/models/"+id+"/status", StatusRequest{Status: "failed"}, nil)
		assert.Equal(t, http.StatusOK, code)

		code = do(t, s, http.MethodPatch, "/api/models/"+id+"/status", StatusRequest{Status: "done"}, nil)
		assert.Equal(t, http.StatusBadRequest, code)

		code = do(t, s, http.MethodPatch, "/api/models/999/status", StatusRequest{Status: "pending"}, nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		bad := transformed.Model
		bad.StructuralGroups = bad.StructuralGroups[:1]
		var check CheckJSON
		code := do(t, s, http.MethodPost, "/api/models", bad, &check)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.False(t, check.Valid)
		assert.NotEmpty(t, check.Errors)
	})

	t.Run("missing", func(t *testing.T) {
		var resp messageResponse
		code := do(t, s, http.MethodGet, "/api/models/999", nil, &resp)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Contains(t, resp.Message, "not found")

		code = do(t, s, http.MethodGet, "/api/models/abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestDocuments(t *testing.T) {
	s := newTestServer(t, true, nil)

	var bad DocumentJSON
	code := do(t, s, http.MethodPost, "/api/documents", DocumentRequest{Name: "broken", DSL: "DEPOSITION D1 [ rock: R9 ]"}, &bad)
	require.Equal(t, http.StatusCreated, code)
	assert.False(t, bad.IsValid)
	require.Len(t, bad.ValidationErrors, 1)
	assert.Contains(t, bad.ValidationErrors[0], "R9")

	var good DocumentJSON
	do(t, s, http.MethodPost, "/api/documents", DocumentRequest{Name: "strata", DSL: strata}, &good)
	assert.True(t, good.IsValid)
	assert.Empty(t, good.ValidationErrors)

	var got DocumentJSON
	code = do(t, s, http.MethodGet, "/api/documents/"+itoa(good.ID), nil, &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, strata, got.RawDSL)

	var list []DocumentJSON
	do(t, s, http.MethodGet, "/api/documents", nil, &list)
	assert.Len(t, list, 2)
}

func TestGenerate(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		code := do(t, newTestServer(t, false, nil), http.MethodPost, "/api/dsl/generate", GenerateRequest{Description: "x"}, nil)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})

	t.Run("valid and saved", func(t *testing.T) {
		r := replies{"```dsl\n" + strata + "```"}
		s := newTestServer(t, true, generate.NewGenerator(&r))
		var resp GenerateResponse
		code := do(t, s, http.MethodPost, "/api/dsl/generate", GenerateRequest{Description: "Three beds.", Save: true}, &resp)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, resp.Valid)
		assert.Equal(t, 1, resp.Attempts)
		assert.Equal(t, strings.TrimSpace(strata), resp.DSL)
		assert.NotNil(t, resp.DocumentID)
	})

	t.Run("gives up", func(t *testing.T) {
		r := replies{"nope", "nope"}
		s := newTestServer(t, false, generate.NewGenerator(&r, generate.WithMaxRetries(2)))
		var resp GenerateResponse
		code := do(t, s, http.MethodPost, "/api/dsl/generate", GenerateRequest{Description: "x"}, &resp)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.False(t, resp.Valid)
		assert.Equal(t, 2, resp.Attempts)
		assert.NotEmpty(t, resp.Errors)
	})
}

func TestStorageNotConfigured(t *testing.T) {
	s := newTestServer(t, false, nil)
	for _, path := range []string{"/api/models", "/api/documents", "/api/models/1", "/api/documents/1"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, path, nil, nil))
		})
	}
}
