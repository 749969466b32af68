// internal/pipeline/stages/registry.go

// Package stages resolves a job's opaque stage configuration into an ordered
// stage list. Parsing is a defensive boundary: malformed or missing
// configuration degrades to a single fallback stage instead of failing.
package stages

import (
	"context"
	"database/sql"
	"encoding/json"

	"hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// FallbackStageID is the single stage a job degrades to when its configuration
// cannot be parsed.
const FallbackStageID = "applied"

const stageConfigSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "name"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"name": {"type": "string", "minLength": 1},
			"gate": {
				"type": "object",
				"properties": {
					"requiredScorecards": {"type": "integer", "minimum": 0},
					"requiredInterviews": {"type": "integer", "minimum": 0}
				}
			}
		}
	}
}`

var stageSchema = gojsonschema.NewStringLoader(stageConfigSchema)

// FallbackStages returns the degraded single-stage pipeline.
func FallbackStages() []models.StageDefinition {
	return []models.StageDefinition{{ID: FallbackStageID, Name: "Applied"}}
}

// Parse resolves a serialized stage configuration. It never fails: invalid
// JSON, schema violations and empty lists all yield the fallback stage.
func Parse(raw []byte) []models.StageDefinition {
	defs, _ := parseWithStatus(raw)
	return defs
}

// parseWithStatus additionally reports whether the configuration was usable.
func parseWithStatus(raw []byte) ([]models.StageDefinition, bool) {
	if len(raw) == 0 {
		return FallbackStages(), false
	}

	result, err := gojsonschema.Validate(stageSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil || !result.Valid() {
		return FallbackStages(), false
	}

	var defs []models.StageDefinition
	if err := json.Unmarshal(raw, &defs); err != nil || len(defs) == 0 {
		return FallbackStages(), false
	}

	// Normalize: a gate with no thresholds is no gate.
	for i := range defs {
		if defs[i].Gate.Empty() {
			defs[i].Gate = nil
		}
	}

	return defs, true
}

// Find returns the definition of the given stage within a resolved list.
func Find(defs []models.StageDefinition, stage models.Stage) (models.StageDefinition, bool) {
	for _, def := range defs {
		if def.ID == string(stage) {
			return def, true
		}
	}
	return models.StageDefinition{}, false
}

// Contains reports whether the stage belongs to the resolved list.
func Contains(defs []models.StageDefinition, stage models.Stage) bool {
	_, ok := Find(defs, stage)
	return ok
}

// Registry loads and resolves per-job stage configurations, going through the
// cache when one is configured.
type Registry struct {
	db     *sql.DB
	cache  *Cache
	logger logger.Logger
}

// NewRegistry creates a stage registry. cache may be nil.
func NewRegistry(db *sql.DB, cache *Cache, log logger.Logger) *Registry {
	return &Registry{
		db:     db,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"component": "stage-registry"}),
	}
}

// JobStages resolves the ordered stage list for a job. The job row must exist;
// its configuration blob may be anything, including NULL.
func (r *Registry) JobStages(ctx context.Context, organizationID, jobID string) ([]models.StageDefinition, error) {
	if r.cache != nil {
		if defs, ok := r.cache.Get(ctx, organizationID, jobID); ok {
			return defs, nil
		}
	}

	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT stage_config FROM jobs
		WHERE id = $1 AND organization_id = $2`, jobID, organizationID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("job_stage_config", err)
	}

	defs, usable := parseWithStatus(raw)
	if !usable && len(raw) > 0 {
		r.logger.Warn("job stage configuration degraded to fallback", map[string]interface{}{
			"jobId":          jobID,
			"organizationId": organizationID,
		})
	}

	if r.cache != nil {
		r.cache.Put(ctx, organizationID, jobID, defs)
	}

	return defs, nil
}
