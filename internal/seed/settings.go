package seed

import (
	"encoding/json"
	"fmt"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// settingsJSON re-encodes YAML settings for the JSONB column.
// yaml.v3 decodes nested mappings as map[string]any, which encoding/json accepts.
func settingsJSON(v map[string]any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: settings: %v", domain.ErrInvalidInput, err)
	}
	return b, nil
}
