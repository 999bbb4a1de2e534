package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/scarakin/internal/env"
)

type ExportData struct {
	RunInfo
	Steps     int                `json:"steps"`
	Done      bool               `json:"done"`
	Times     []float64          `json:"times"`
	States    [][]float64        `json:"states"`
	Actions   [][]float64        `json:"actions"`
	Goals     [][]float64        `json:"goals"`
	Distances []float64          `json:"distances"`
	Rewards   []float64          `json:"rewards"`
	Metrics   map[string]float64 `json:"metrics"`
}

// ExportJSON writes an indented JSON dump of an episode.
func ExportJSON(w io.Writer, info RunInfo, ep *env.Episode) error {
	data := ExportData{
		RunInfo:   info,
		Steps:     ep.Steps,
		Done:      ep.Done,
		Times:     ep.Times,
		States:    ep.States,
		Actions:   ep.Actions,
		Goals:     ep.Goals,
		Distances: ep.Distances,
		Rewards:   ep.Rewards,
		Metrics:   ep.Metrics,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
