package query

import "encoding/json"

// metadataFromJSON decodes a fragment's metadata_json scalar into a
// generic map for the response envelope. An empty or malformed value
// yields an empty map rather than an error: metadata is supplementary,
// never load-bearing for the search result itself.
func metadataFromJSON(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}
