package dashboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrDataDirUnset means no data directory was configured.
	ErrDataDirUnset = errors.New("data directory is not configured")
	// ErrDataDirMissing means the configured data directory does not exist.
	ErrDataDirMissing = errors.New("data directory does not exist")
	// ErrFileNotFound means a metric workbook could not be located.
	ErrFileNotFound = errors.New("file not found")
)

// Metric is a catalog entry: the label shown to the user, which is also the
// name of the value column, and the workbook holding it.
type Metric struct {
	Label string `json:"label"`
	File  string `json:"file"`
}

// DefaultMetrics is the built-in metric catalog.
var DefaultMetrics = []Metric{
	{Label: "신입생충원율", File: "신입생충원율.xlsx"},
	{Label: "재학률", File: "재학률.xlsx"},
	{Label: "중도탈락률", File: "중도탈락률.xlsx"},
	{Label: "현장실습참여학생비율", File: "현장실습참여학생비율.xlsx"},
	{Label: "교수당국제저명논문수", File: "교수당국제저명논문수.xlsx"},
	{Label: "학생창업실적", File: "학생창업실적.xlsx"},
	{Label: "학생사회봉사참여실적", File: "학생100명당사회봉사참여실적.xlsx"},
	{Label: "기금실적", File: "기금실적.xlsx"},
	{Label: "세입중등록금비율", File: "세입중등록금비율.xlsx"},
}

func checkDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return ErrDataDirUnset
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrDataDirMissing, dir)
	}
	return nil
}

// FindMatchingFile returns the first file in dir, by name, whose name
// contains both period and fragment. An empty period matches any name.
// found is false, with a nil error, when nothing matches.
func FindMatchingFile(dir, period, fragment string) (path string, found bool, err error) {
	if err := checkDir(dir); err != nil {
		return "", false, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		if strings.Contains(name, period) && strings.Contains(name, fragment) {
			return filepath.Join(dir, name), true, nil
		}
	}
	return "", false, nil
}

// resolveMetricFile returns the catalog file if it exists, otherwise the
// first discovered file containing its base name (and the period, when only
// one is selected).
func resolveMetricFile(dir string, m Metric, periods []string) (string, error) {
	if err := checkDir(dir); err != nil {
		return "", err
	}
	exact := filepath.Join(dir, m.File)
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	period := ""
	if len(periods) == 1 {
		period = periods[0]
	}
	stem := strings.TrimSuffix(m.File, filepath.Ext(m.File))
	path, found, err := FindMatchingFile(dir, period, stem)
	if err != nil {
		return "", err
	}
	if !found {
		return exact, fmt.Errorf("%w: %s", ErrFileNotFound, exact)
	}
	return path, nil
}
