package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// HTTPPredictor calls trained models over a JSON-over-HTTP contract: POST
// the PredictInput to the model's configured endpoint, read back a
// ModelPrediction. It satisfies Predictor for every trained model in the
// snapshot.
type HTTPPredictor struct {
	client    *http.Client
	endpoints map[string]string // model ID -> endpoint URL
}

// NewHTTPPredictor indexes the trained models' endpoints from the
// configuration. client may be nil for http.DefaultClient.
func NewHTTPPredictor(client *http.Client, cfg config.ModelsConfig) *HTTPPredictor {
	if client == nil {
		client = http.DefaultClient
	}
	endpoints := make(map[string]string)
	for _, ref := range append(append([]config.ModelRef{}, cfg.Stage1...), cfg.Stage2...) {
		if models.PredictorKind(ref.Kind) == models.PredictorTrained {
			endpoints[ref.ID] = ref.Endpoint
		}
	}
	return &HTTPPredictor{client: client, endpoints: endpoints}
}

// Predict posts the input to the model's endpoint. The caller's context
// carries the stage budget; no additional timeout is layered here.
func (p *HTTPPredictor) Predict(ctx context.Context, modelID string, in PredictInput) (models.ModelPrediction, error) {
	endpoint, ok := p.endpoints[modelID]
	if !ok {
		return models.ModelPrediction{}, fmt.Errorf("ml: no endpoint configured for model %q", modelID)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return models.ModelPrediction{}, fmt.Errorf("ml: marshalling predict input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.ModelPrediction{}, fmt.Errorf("ml: building predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.ModelPrediction{}, fmt.Errorf("ml: calling model %s: %w", modelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.ModelPrediction{}, fmt.Errorf("ml: model %s returned %d: %s", modelID, resp.StatusCode, string(raw))
	}

	var pred models.ModelPrediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return models.ModelPrediction{}, fmt.Errorf("ml: decoding model %s response: %w", modelID, err)
	}

	pred.ModelID = modelID
	pred.Kind = models.PredictorTrained
	pred.Probability = clamp01(pred.Probability)
	pred.Confidence = clamp01(pred.Confidence)
	return pred, nil
}
