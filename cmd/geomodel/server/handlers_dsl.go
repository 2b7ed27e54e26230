package server

import (
	"errors"
	"net/http"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/cmd/geomodel/generate"
	"geo-tools/cmd/geomodel/store"
	"geo-tools/pkg/logger"

	"github.com/labstack/echo/v4"
)

type DSLRequest struct {
	DSL string `json:"dsl" validate:"required"`
}

type ParseResponse struct {
	Valid    bool            `json:"valid"`
	Errors   []Diagnostic    `json:"errors"`
	Warnings []string        `json:"warnings"`
	Summary  *ProgramSummary `json:"summary,omitempty"`
}

type FormatResponse struct {
	DSL string `json:"dsl"`
}

type SyntaxErrorResponse struct {
	Message string       `json:"message"`
	Errors  []Diagnostic `json:"errors"`
}

type GenerateRequest struct {
	Description string `json:"description" validate:"required"`
	Consolidate bool   `json:"consolidate"`
	Save        bool   `json:"save"`
	Name        string `json:"name"`
}

type GenerateResponse struct {
	DSL        string   `json:"dsl"`
	Valid      bool     `json:"valid"`
	Attempts   int      `json:"attempts"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	DocumentID *int64   `json:"document_id,omitempty"`
}

var (
	errNoRepository = echo.NewHTTPError(http.StatusServiceUnavailable, "storage is not configured")
	errNoGenerator  = echo.NewHTTPError(http.StatusServiceUnavailable, "generation is not configured")
)

// bind decodes and validates a request body.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (s *Server) grammar(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"grammar": dsl.GrammarReference,
		"example": dsl.ExampleProgram,
	})
}

// parse reports syntax and semantic findings. A syntax error is a finding,
// not a failed request.
func (s *Server) parse(c echo.Context) error {
	var req DSLRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	resp := ParseResponse{Errors: []Diagnostic{}, Warnings: []string{}}
	prog, res, err := s.engine.Build(req.DSL)
	if err != nil {
		resp.Errors = append(resp.Errors, parseDiagnostic(err))
		return c.JSON(http.StatusOK, resp)
	}

	sum := summarize(prog)
	resp.Summary = &sum
	resp.Valid = res.IsValid()
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, semanticDiagnostic(e))
	}
	resp.Warnings = append(resp.Warnings, res.Warnings...)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) format(c echo.Context) error {
	var req DSLRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	prog, err := dsl.Parse(req.DSL)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, SyntaxErrorResponse{
			Message: "DSL does not parse",
			Errors:  []Diagnostic{parseDiagnostic(err)},
		})
	}
	return c.JSON(http.StatusOK, FormatResponse{DSL: dsl.Serialize(prog)})
}

func (s *Server) generate(c echo.Context) error {
	if s.deps.Generator == nil {
		return errNoGenerator
	}
	var req GenerateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Save && s.deps.Repo == nil {
		return errNoRepository
	}

	ctx := c.Request().Context()
	description := req.Description
	if req.Consolidate {
		text, err := s.deps.Generator.Consolidate(ctx, description)
		if err != nil {
			logger.Error("consolidation failed", "err", err)
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		description = text
	}

	res, err := s.deps.Generator.Generate(ctx, description)
	if res == nil {
		logger.Error("generation failed", "err", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	resp := GenerateResponse{
		DSL:      res.DSL,
		Valid:    err == nil,
		Attempts: res.Attempts,
		Errors:   append([]string{}, res.Errors...),
		Warnings: []string{},
	}
	if res.Validation != nil {
		resp.Warnings = append(resp.Warnings, res.Validation.Warnings...)
	}
	if err != nil && !errors.Is(err, generate.ErrGenerationFailed) {
		logger.Error("generation aborted", "err", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	if req.Save && res.DSL != "" {
		name := req.Name
		if name == "" {
			name = "generated"
		}
		doc, serr := s.deps.Repo.SaveDocument(ctx, store.Document{
			Name:             name,
			RawDSL:           res.DSL,
			IsValid:          resp.Valid,
			ValidationErrors: res.Errors,
		})
		if serr != nil {
			return serr
		}
		resp.DocumentID = &doc.ID
	}

	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, resp)
}
