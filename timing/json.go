package timing

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"

	"github.com/tetelio/asset-pipeline/utils"
)

// MarshalJSON writes the records with string file indexes, the layout used by
// the time analysis files: {"0": {"download": {"start": 0.1, "end": 1.2}}}.
func (r Records) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[Stage]Span, len(r))
	for index, spans := range r {
		out[strconv.Itoa(index)] = spans
	}
	return json.Marshal(out)
}

func (r *Records) UnmarshalJSON(data []byte) error {
	var raw map[string]map[Stage]Span
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Records, len(raw))
	for key, spans := range raw {
		index, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("invalid file index %q: %w", key, err)
		}
		out[index] = spans
	}
	*r = out
	return nil
}

// WriteJSON persists records to path, creating its directory when needed.
func WriteJSON(fs afero.Fs, path string, records Records) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode timing records: %w", err)
	}

	if err := utils.EnsureDirs(fs, filepath.Dir(path)); err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(fs, path, data, 0644); err != nil {
		return err
	}

	zlog.Sugar().Debugf("Wrote timing records for %d files to %s", len(records), path)
	return nil
}

// ReadJSON loads records written by WriteJSON.
func ReadJSON(fs afero.Fs, path string) (Records, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing file: %w", err)
	}

	var records Records
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode timing file %s: %w", path, err)
	}
	return records, nil
}
