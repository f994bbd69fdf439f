package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/kilnforge/meshpilot/integration"
)

type queuedResponse struct {
	value interface{}
	err   error
}

type queuedSender struct {
	byCommand map[string][]queuedResponse
}

func newQueuedSender() *queuedSender {
	return &queuedSender{byCommand: map[string][]queuedResponse{}}
}

func (q *queuedSender) on(commandType string, value interface{}, err error) *queuedSender {
	q.byCommand[commandType] = append(q.byCommand[commandType], queuedResponse{value: value, err: err})
	return q
}

func (q *queuedSender) Send(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error) {
	queue := q.byCommand[commandType]
	if len(queue) == 0 {
		return nil, errors.New("queuedSender: no response queued for " + commandType)
	}
	next := queue[0]
	q.byCommand[commandType] = queue[1:]
	return next.value, next.err
}

func TestAssetSearchAndImportTool_MarketplaceIntent(t *testing.T) {
	sender := newQueuedSender().
		on("search_sketchfab_models", map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{"uid": "u1", "name": "Branded Sedan", "isDownloadable": true},
			},
		}, nil).
		on("download_sketchfab_model", map[string]interface{}{}, nil)

	registry := integration.NewRegistry(sender, nil)
	tool := NewAssetSearchAndImportTool(registry)

	res := tool.Run(context.Background(), "import the official branded model of a sedan")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	assetResult, ok := res.Payload["assetResult"].(map[string]interface{})
	if !ok || assetResult["name"] != "Branded Sedan" {
		t.Errorf("assetResult = %+v", res.Payload["assetResult"])
	}
}

func TestAssetSearchAndImportTool_LibraryIntent(t *testing.T) {
	sender := newQueuedSender().
		on("search_polyhaven_assets", map[string]interface{}{"results": []interface{}{"oak_veneer"}}, nil).
		on("download_polyhaven_asset", map[string]interface{}{}, nil)

	registry := integration.NewRegistry(sender, nil)
	tool := NewAssetSearchAndImportTool(registry)

	res := tool.Run(context.Background(), "apply a wood material to the table")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}
