package registry

import (
	"encoding/json"

	"github.com/evalgo/semindex/model"
)

// decodeGroupsKey parses the JSON-serialized canonical AuthorizationGroupSet
// stored on a persisted registry triple back into a group set.
func decodeGroupsKey(key string) (model.AuthorizationGroupSet, error) {
	var groups model.AuthorizationGroupSet
	if key == "" {
		return groups, nil
	}
	if err := json.Unmarshal([]byte(key), &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
