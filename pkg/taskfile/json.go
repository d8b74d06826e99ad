// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

func parseJSON(data []byte, _ string) (map[string]any, []string, error) {
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	var order []string
	gjson.GetBytes(data, "tasks").ForEach(func(key, _ gjson.Result) bool {
		order = append(order, key.String())
		return true
	})
	return doc, order, nil
}
