package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/linkage/internal/dynamo"
)

// ErrMalformed is returned when a CSV does not look like one WriteCSV made.
var ErrMalformed = errors.New("storage: malformed samples")

// Header names the CSV columns of a state with dim components: the time,
// the angles q and rates u, then their derivatives when withDerivs is set.
func Header(dim int, withDerivs bool) []string {
	n := dim / 2
	header := []string{"t"}
	for i := 0; i < n; i++ {
		header = append(header, fmt.Sprintf("q%d", i))
	}
	for i := 0; i < dim-n; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	if withDerivs {
		for _, name := range header[1:] {
			header = append(header, "d"+name)
		}
	}
	return header
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes one row per sample. Values are written at full precision.
func WriteCSV(w io.Writer, result *dynamo.Result) error {
	cw := csv.NewWriter(w)
	if len(result.States) == 0 {
		cw.Flush()
		return cw.Error()
	}

	dim := len(result.States[0])
	withDerivs := len(result.Derivs) == len(result.States)
	if err := cw.Write(Header(dim, withDerivs)); err != nil {
		return err
	}

	row := make([]string, 0, 1+2*dim)
	for i, x := range result.States {
		row = append(row[:0], formatFloat(result.Times[i]))
		for _, v := range x {
			row = append(row, formatFloat(v))
		}
		if withDerivs {
			for _, v := range result.Derivs[i] {
				row = append(row, formatFloat(v))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses samples written by WriteCSV.
func ReadCSV(r io.Reader) (*dynamo.Result, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	result := &dynamo.Result{Metrics: make(map[string]float64)}
	if len(records) == 0 {
		return result, nil
	}

	header := records[0]
	if len(header) < 2 || header[0] != "t" {
		return nil, fmt.Errorf("%w: header %q", ErrMalformed, strings.Join(header, ","))
	}
	dim := len(header) - 1
	withDerivs := strings.HasPrefix(header[len(header)-1], "d")
	if withDerivs {
		if dim%2 != 0 {
			return nil, fmt.Errorf("%w: %d value columns", ErrMalformed, dim)
		}
		dim /= 2
	}

	for line, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			vals[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, line+1, err)
			}
		}
		result.Times = append(result.Times, vals[0])
		result.States = append(result.States, dynamo.State(vals[1 : 1+dim : 1+dim]))
		if withDerivs {
			result.Derivs = append(result.Derivs, dynamo.State(vals[1+dim:]))
		}
	}
	return result, nil
}

// ExportData is the JSON form of a run.
type ExportData struct {
	Preset     string             `json:"preset"`
	Integrator string             `json:"integrator"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Rejected   int                `json:"rejected"`
	Columns    []string           `json:"columns"`
	Times      []float64          `json:"times"`
	States     [][]float64        `json:"states"`
	Metrics    map[string]float64 `json:"metrics"`
}

// NewExportData collects result for ExportJSON.
func NewExportData(preset, integrator string, duration float64, result *dynamo.Result) ExportData {
	data := ExportData{
		Preset:     preset,
		Integrator: integrator,
		Duration:   duration,
		Steps:      result.StepsTaken,
		Rejected:   result.Rejected,
		Times:      result.Times,
		States:     make([][]float64, len(result.States)),
		Metrics:    finite(result.Metrics),
	}
	if len(result.States) > 0 {
		data.Columns = Header(len(result.States[0]), false)[1:]
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	return data
}

func ExportJSON(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
