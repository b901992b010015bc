package jobs

import (
	"fmt"
	"strings"
)

// Mode selects what a run does
type Mode string

const (
	ModeIngestCatalog    Mode = "ingest-catalog"
	ModeGenerateTestData Mode = "generate-test-data"
	ModeClearTestData    Mode = "clear-test-data"
	ModeMaintainCatalog  Mode = "maintain-catalog"
)

// Modes lists every supported mode
var Modes = []Mode{ModeIngestCatalog, ModeGenerateTestData, ModeClearTestData, ModeMaintainCatalog}

// ParseMode returns the mode named s
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return "", fmt.Errorf("unknown mode %q, expected one of %s", s, strings.Join(names, ", "))
}
