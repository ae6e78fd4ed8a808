package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

func scanSearch(scan func(dest ...any) error, withPayload bool) (*Search, error) {
	var (
		s       Search
		params  []byte
		payload []byte
		errText sql.NullString
	)
	if err := scan(&s.ID, &s.Kind, &params, &s.Status, &s.ResultCount, &payload, &errText, &s.DurationMS, &s.CreatedAt); err != nil {
		return nil, err
	}

	p, err := decodeParams(params)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.ID, err)
	}
	s.Params = p
	s.Error = errText.String
	if withPayload {
		s.Payload = payload
	}
	return &s, nil
}

func encodeParams(params map[string]string) ([]byte, error) {
	if params == nil {
		params = map[string]string{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	return b, nil
}

func decodeParams(raw []byte) (map[string]string, error) {
	params := map[string]string{}
	if len(raw) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	return params, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
