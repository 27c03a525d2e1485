// Package tabular reads and writes dataset splits in the label-first tabular
// format expected by the training side of the platform: comma-separated rows,
// no header, first column the class label, remaining columns the features.
// One file holds one split.
package tabular

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"crescent/moons"
)

// Encode writes set to w, one row per sample in sample order. Floats are
// formatted with strconv's shortest round-tripping representation, so a Decode
// of the output reproduces the set exactly.
func Encode(w io.Writer, set moons.Set) error {
	cw := csv.NewWriter(w)

	record := make([]string, 0, set.Dim()+1)
	for i, smp := range set.Samples {
		record = record[:0]
		record = append(record, strconv.Itoa(smp.Label))
		for _, f := range smp.Features {
			record = append(record, strconv.FormatFloat(f, 'g', -1, 64))
		}

		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "Can't encode dataset, failed to write row %d", i)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "Can't encode dataset")
}

// Decode reads a label-first tabular file from r and reconstructs the split it
// holds, preserving row order. Labels must be 0 or 1 and every row must have
// the same number of columns; Decode returns a descriptive error otherwise.
// An empty input decodes to an empty Set.
func Decode(r io.Reader) (moons.Set, error) {
	cr := csv.NewReader(r)
	// Width agreement is checked below so the error can name the row.
	cr.FieldsPerRecord = -1

	var set moons.Set
	dim := -1
	for row := 0; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return moons.Set{}, errors.Wrapf(err, "Can't decode dataset, bad row %d", row)
		}

		if len(record) < 2 {
			return moons.Set{}, errors.Errorf("Can't decode dataset, row %d has no features", row)
		} else if dim == -1 {
			dim = len(record) - 1
		} else if len(record)-1 != dim {
			return moons.Set{}, errors.Errorf("Can't decode dataset, row %d has %d features, earlier rows had %d",
				row, len(record)-1, dim)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			return moons.Set{}, errors.Wrapf(err, "Can't decode dataset, row %d has a non-integer label %q", row, record[0])
		} else if label != moons.Outer && label != moons.Inner {
			return moons.Set{}, errors.Errorf("Can't decode dataset, row %d has label %d outside {0, 1}", row, label)
		}

		features := make([]float64, dim)
		for i, field := range record[1:] {
			if features[i], err = strconv.ParseFloat(field, 64); err != nil {
				return moons.Set{}, errors.Wrapf(err, "Can't decode dataset, row %d column %d is not numeric (%q)", row, i+1, field)
			}
		}

		set.Samples = append(set.Samples, moons.Sample{Features: features, Label: label})
	}

	return set, nil
}
