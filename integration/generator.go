package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/kilnforge/meshpilot/core"
)

const (
	generatorPollBudget = 3 * time.Minute
)

// generatorPollInterval is a var (not const) so tests can shrink it;
// production code never reassigns it.
var generatorPollInterval = 5 * time.Second

// GeneratorAdapter generates a novel asset from a text prompt via the
// remote host's Hyper3D/Rodin job pipeline: submit a job, poll until
// complete, then import the result.
type GeneratorAdapter struct {
	*guardedAdapter
	sender Sender
	logger core.Logger
}

func NewGeneratorAdapter(sender Sender, logger core.Logger) *GeneratorAdapter {
	return &GeneratorAdapter{
		guardedAdapter: newGuardedAdapter("generator", logger),
		sender:         sender,
		logger:         logger,
	}
}

// Generate submits prompt as a generation job and blocks until it
// completes or the poll budget is exhausted.
func (g *GeneratorAdapter) Generate(ctx context.Context, prompt string) (AssetRef, error) {
	return g.call(ctx, func() (AssetRef, error) {
		return g.generate(ctx, prompt)
	})
}

func (g *GeneratorAdapter) generate(ctx context.Context, prompt string) (AssetRef, error) {
	created, err := g.sender.Send(ctx, "create_rodin_job", map[string]interface{}{"prompt": prompt})
	if err != nil {
		return AssetRef{}, fmt.Errorf("generator: create job: %w", err)
	}

	jobID, taskUUIDs, usesTaskList := parseJobCreation(created)
	if jobID == "" && len(taskUUIDs) == 0 {
		return AssetRef{}, fmt.Errorf("generator: %w: job creation response missing job identifiers", core.ErrSchemaError)
	}

	deadline := time.Now().Add(generatorPollBudget)
	for time.Now().Before(deadline) {
		status, err := g.sender.Send(ctx, "poll_rodin_job_status", map[string]interface{}{
			"job_id":     jobID,
			"task_uuids": taskUUIDs,
		})
		if err != nil {
			return AssetRef{}, fmt.Errorf("generator: poll job: %w", err)
		}

		done, failed := interpretJobStatus(status, usesTaskList)
		if failed {
			return AssetRef{}, fmt.Errorf("generator: %w: job reported failure", core.ErrImportFailed)
		}
		if done {
			return g.importResult(ctx, jobID)
		}

		select {
		case <-time.After(generatorPollInterval):
		case <-ctx.Done():
			return AssetRef{}, ctx.Err()
		}
	}

	return AssetRef{}, fmt.Errorf("generator: %w: job did not complete within poll budget", core.ErrTimeout)
}

func (g *GeneratorAdapter) importResult(ctx context.Context, jobID string) (AssetRef, error) {
	imported, err := g.sender.Send(ctx, "import_generated_asset", map[string]interface{}{"job_id": jobID})
	if err != nil {
		return AssetRef{}, fmt.Errorf("generator: import: %w", err)
	}
	name := stringField(imported, "name", "generated_asset")
	return AssetRef{Name: name, Type: "model", AssetType: "generated"}, nil
}

// parseJobCreation inspects the job-creation response and extracts
// whichever identifier shape the remote host used: a list of per-task
// uuids, or a single overall job id.
func parseJobCreation(created interface{}) (jobID string, taskUUIDs []string, usesTaskList bool) {
	m, ok := created.(map[string]interface{})
	if !ok {
		return "", nil, false
	}
	if rawList, ok := m["uuids"].([]interface{}); ok && len(rawList) > 0 {
		for _, v := range rawList {
			if s, ok := v.(string); ok {
				taskUUIDs = append(taskUUIDs, s)
			}
		}
		return stringField(m, "job_id", ""), taskUUIDs, true
	}
	return stringField(m, "job_id", ""), nil, false
}

// interpretJobStatus reads either a per-task status list (when
// usesTaskList is true) or a single overall "status" field, returning
// whether the job is done and whether it failed.
func interpretJobStatus(status interface{}, usesTaskList bool) (done, failed bool) {
	m, ok := status.(map[string]interface{})
	if !ok {
		return false, false
	}

	if usesTaskList {
		rawStatuses, ok := m["statuses"].([]interface{})
		if !ok || len(rawStatuses) == 0 {
			return false, false
		}
		allDone := true
		for _, s := range rawStatuses {
			str, _ := s.(string)
			switch str {
			case "failed", "error":
				return false, true
			case "done", "completed", "succeeded":
				// this task is done; keep checking the rest
			default:
				allDone = false
			}
		}
		return allDone, false
	}

	overall := stringField(m, "status", "")
	switch overall {
	case "failed", "error":
		return false, true
	case "done", "completed", "succeeded":
		return true, false
	default:
		return false, false
	}
}

func stringField(v interface{}, key, fallback string) string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return fallback
	}
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
