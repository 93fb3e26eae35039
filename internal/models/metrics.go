package models

import "time"

type Metric struct {
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Step      int64     `json:"step"`
}

// EpochMetrics holds the losses recorded at the end of one epoch.
type EpochMetrics struct {
	Epoch   int       `json:"epoch"`
	Loss    float64   `json:"loss"`
	ValLoss float64   `json:"val_loss"`
	EndTime time.Time `json:"end_time"`
}

// History is what a trainer reports once it has finished.
type History struct {
	RunUID      string         `json:"run_uid"`
	ModelString string         `json:"model_string"`
	LossName    string         `json:"loss_name"`
	Epochs      []EpochMetrics `json:"epochs"`
}

// Metrics expands the history into one metric per loss per epoch.
func (h *History) Metrics() []Metric {
	if h == nil {
		return nil
	}
	metrics := make([]Metric, 0, 2*len(h.Epochs))
	for _, e := range h.Epochs {
		step := int64(e.Epoch)
		metrics = append(metrics,
			Metric{Key: "loss", Value: e.Loss, Timestamp: e.EndTime, Step: step},
			Metric{Key: "val_loss", Value: e.ValLoss, Timestamp: e.EndTime, Step: step},
		)
	}
	return metrics
}
