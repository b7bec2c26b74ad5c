package postprocess

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// RipenessLabels is the label set of the bundled mango ripeness model, in
// class-index order.
var RipenessLabels = []string{"unripe", "semi_ripe", "ripe", "overripe"}

// LoadLabels reads a label file with one class label per line, in class
// index order. Blank lines and surrounding whitespace are ignored.
//
// Arguments:
//   - path: Path to the label file.
//
// Returns:
//   - []string: The labels in file order.
//   - error: Read failures, or a file with no usable labels.
func LoadLabels(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading label file %s", path)
	}

	var labels []string
	for _, line := range strings.Split(string(raw), "\n") {
		if label := strings.TrimSpace(line); label != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		return nil, errors.Errorf("label file %s contains no labels", path)
	}
	return labels, nil
}
