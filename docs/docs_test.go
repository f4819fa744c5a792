package docs

import (
	"encoding/json"
	"testing"
)

func TestSwaggerDoc(t *testing.T) {
	var doc struct {
		Swagger string                    `json:"swagger"`
		Info    map[string]any            `json:"info"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc); err != nil {
		t.Fatalf("doc is not valid JSON: %v", err)
	}
	if doc.Info["title"] != "Voice Translator API" {
		t.Errorf("unexpected title %v", doc.Info["title"])
	}

	routes := map[string]string{
		"/v1/translations":     "post",
		"/v1/languages":        "put",
		"/v1/reset":            "post",
		"/v1/transcriptions":   "post",
		"/v1/status":           "get",
		"/v1/errors/{channel}": "delete",
		"/v1/events":           "get",
		"/health":              "get",
		"/health/live":         "get",
	}
	for path, method := range routes {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("missing %s %s", method, path)
		}
	}
}
