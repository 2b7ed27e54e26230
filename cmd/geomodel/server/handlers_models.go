package server

import (
	"errors"
	"net/http"
	"strconv"

	"geo-tools/cmd/geomodel/store"
	"geo-tools/cmd/geomodel/structural"
	"geo-tools/pkg/logger"

	"github.com/labstack/echo/v4"
)

type TransformRequest struct {
	DSL              string          `json:"dsl" validate:"required"`
	Name             string          `json:"name"`
	DocumentID       *int64          `json:"document_id,omitempty"`
	Extent           *ExtentJSON     `json:"extent,omitempty"`
	Resolution       *ResolutionJSON `json:"resolution,omitempty"`
	Spatial          bool            `json:"spatial"`
	Seed             *uint64         `json:"seed,omitempty"`
	PointsPerSurface int             `json:"points_per_surface" validate:"gte=0,lte=1000"`
	Save             bool            `json:"save"`
}

type TransformResponse struct {
	Model         ModelJSON `json:"model"`
	Check         CheckJSON `json:"check"`
	ModelID       *int64    `json:"model_id,omitempty"`
	DSLDocumentID *int64    `json:"dsl_document_id,omitempty"`
}

type SemanticErrorResponse struct {
	Message  string       `json:"message"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []string     `json:"warnings"`
}

type CreateModelResponse struct {
	ID    int64     `json:"id"`
	Check CheckJSON `json:"check"`
}

type ModelResponse struct {
	Summary ModelSummaryJSON `json:"summary"`
	Model   ModelJSON        `json:"model"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type DocumentRequest struct {
	Name       string `json:"name" validate:"required"`
	DSL        string `json:"dsl" validate:"required"`
	DocumentID *int64 `json:"document_id,omitempty"`
}

// storeError maps repository failures to HTTP errors.
func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	logger.Error("storage failure", "err", err)
	return err
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func limitParam(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Transformation
// ---------------------------------------------------------------------------

func (s *Server) transform(c echo.Context) error {
	var req TransformRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Save && s.deps.Repo == nil {
		return errNoRepository
	}

	prog, res, err := s.engine.Build(req.DSL)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, SyntaxErrorResponse{
			Message: "DSL does not parse",
			Errors:  []Diagnostic{parseDiagnostic(err)},
		})
	}
	if !res.IsValid() {
		out := SemanticErrorResponse{Message: "DSL is not valid", Errors: []Diagnostic{}, Warnings: append([]string{}, res.Warnings...)}
		for _, e := range res.Errors {
			out.Errors = append(out.Errors, semanticDiagnostic(e))
		}
		return c.JSON(http.StatusUnprocessableEntity, out)
	}

	name := req.Name
	if name == "" {
		name = "model"
	}
	opts := []structural.Option{
		structural.WithExtent(s.deps.Extent),
		structural.WithResolution(s.deps.Resolution),
	}
	if req.Extent != nil {
		opts = append(opts, structural.WithExtent(structural.ModelExtent(*req.Extent)))
	}
	if req.Resolution != nil {
		opts = append(opts, structural.WithResolution(structural.ModelResolution(*req.Resolution)))
	}
	opts = append(opts, structural.WithDocumentIDs(req.DocumentID, nil))

	cfg, err := s.transformer.Transform(prog, name, opts...)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	check := structural.NewConfigValidator().Validate(cfg)

	data := &structural.ModelData{Config: *cfg}
	if req.Spatial {
		var sopts []structural.SpatialOption
		if req.Seed != nil {
			sopts = append(sopts, structural.WithSeed(*req.Seed))
		}
		if req.PointsPerSurface > 0 {
			sopts = append(sopts, structural.WithPointsPerSurface(req.PointsPerSurface))
		}
		data, err = structural.NewSpatialGenerator(sopts...).Generate(cfg)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		check.Merge(structural.NewDataValidator().Validate(data))
	}

	resp := TransformResponse{Check: toCheckJSON(check)}
	if req.Save && check.IsValid() {
		ctx := c.Request().Context()
		doc, err := s.deps.Repo.SaveDocument(ctx, store.Document{
			Name:       name,
			DocumentID: req.DocumentID,
			RawDSL:     req.DSL,
			IsValid:    true,
		})
		if err != nil {
			return storeError(err)
		}
		data.Config.DSLDocumentID = &doc.ID
		id, err := s.deps.Repo.SaveModel(ctx, data)
		if err != nil {
			return storeError(err)
		}
		resp.ModelID, resp.DSLDocumentID = &id, &doc.ID
	}
	resp.Model = toModelJSON(data)
	return c.JSON(http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// Models
// ---------------------------------------------------------------------------

func (s *Server) createModel(c echo.Context) error {
	if s.deps.Repo == nil {
		return errNoRepository
	}
	var req ModelJSON
	if err := bind(c, &req); err != nil {
		return err
	}

	data := s.toModelData(req)
	check := structural.NewConfigValidator().Validate(&data.Config)
	if len(data.SurfacePoints) > 0 {
		check.Merge(structural.NewDataValidator().Validate(data))
	}
	if !check.IsValid() {
		return c.JSON(http.StatusUnprocessableEntity, toCheckJSON(check))
	}

	id, err := s.deps.Repo.SaveModel(c.Request().Context(), data)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, CreateModelResponse{ID: id, Check: toCheckJSON(check)})
}

func (s *Server) listModels(c echo.Context) error {
	if s.deps.Repo == nil {
		return errNoRepository
	}
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	models, err := s.deps.Repo.ListModels(c.Request().Context(), limit)
	if err != nil {
		return storeError(err)
	}
	out := make([]ModelSummaryJSON, 0, len(models))
	for _, m := range models {
		out = append(out, toModelSummaryJSON(m))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getModel(c echo.Context) error {
	if s.deps.Repo == nil {
		return errNoRepository
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	summary, data, err := s.deps.Repo.GetModel(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, ModelResponse{Summary: toModelSummaryJSON(summary), Model: toModelJSON(data)})
}

func (s *Server) setModelStatus(c echo.Context) error {
	if s.deps.Repo == nil {
		return errNoRepository
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	status, err := store.ParseModelStatus(req.Status)
	if err != nil {
		return storeError(err)
	}
	if err := s.deps.Repo.SetModelStatus(c.Request().Context(), id, status); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "status updated"})
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// createDocument stores DSL text whatever its validity, recording the
// findings with it.
func (s *Server) createDocument(c echo.Context) error {
	if s.deps.Repo == nil {
		return errNoRepository
	}
	var req DocumentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	doc := store.Document{Name: req.Name, DocumentID: req.DocumentID, RawDSL: req.DSL}
	doc.IsValid, doc.ValidationErrors = s.findings(req.DSL)

	saved, err := s.deps.Repo.SaveDocument(c.Request().Context(), doc)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, toDocumentJSON(saved))
}

func (s *Server) findings(text string) (bool, []string) {
	_, res, err := s.engine.Build(text)
	if err != nil {
		return false, []string{err.Error()}
	}
	var msgs []string
	for _, e := range res.Errors {
		msgs = append(msgs, e.Error())
	}
	return res.IsValid(), msgs
}

func (s *Server) listDocuments(c echo.Context) error {
	if s.deps.Repo == nil {
		return errNoRepository
	}
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	docs, err := s.deps.Repo.ListDocuments(c.Request().Context(), limit)
	if err != nil {
		return storeError(err)
	}
	out := make([]DocumentJSON, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentJSON(d))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getDocument(c echo.Context) error {
	if s.deps.Repo == nil {
		return errNoRepository
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	doc, err := s.deps.Repo.GetDocument(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, toDocumentJSON(doc))
}
