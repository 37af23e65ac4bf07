package diagram

import (
	"strconv"
	"strings"

	"diagramai/pkg/domain"
)

// maxDataPoints bounds the reduced sample embedded in chart instructions.
const maxDataPoints = 20

// DatasetRequest carries raw tabular rows plus column selections for chart
// generation.
type DatasetRequest struct {
	Rows        []map[string]string `json:"rows"`
	XColumn     string              `json:"xColumn"`
	YColumn     string              `json:"yColumn"`
	LabelColumn string              `json:"labelColumn,omitempty"`
	Kind        domain.DiagramKind  `json:"kind"`
	Description string              `json:"description,omitempty"`
}

// Reduce converts raw rows to a bounded list of data points. Rows whose Y
// value does not parse as a float are dropped. Returns ErrNoUsableRows when
// nothing survives.
func Reduce(req DatasetRequest) ([]domain.DataPoint, error) {
	points := make([]domain.DataPoint, 0, min(len(req.Rows), maxDataPoints))
	for _, row := range req.Rows {
		if len(points) == maxDataPoints {
			break
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(row[req.YColumn]), 64)
		if err != nil {
			continue
		}
		point := domain.DataPoint{
			X: strings.TrimSpace(row[req.XColumn]),
			Y: y,
		}
		if req.LabelColumn != "" {
			point.Label = strings.TrimSpace(row[req.LabelColumn])
		}
		points = append(points, point)
	}
	if len(points) == 0 {
		return nil, ErrNoUsableRows
	}
	return points, nil
}
