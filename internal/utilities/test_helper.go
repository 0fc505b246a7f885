package utilities

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
)

// SimulateAPICall runs handler once against a JSON request built from body,
// outside of any router. Each prepare func may seed the context (for
// example the "user" key set by RequireAuth) before the handler runs.
// An empty response body yields a nil map and no error.
func SimulateAPICall(
	handler gin.HandlerFunc,
	route, method string,
	body any,
	prepare ...func(*gin.Context),
) (*httptest.ResponseRecorder, map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, route, bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	for _, fn := range prepare {
		fn(c)
	}

	handler(c)

	if rec.Body.Len() == 0 {
		return rec, nil, nil
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		return rec, nil, err
	}
	return rec, resp, nil
}
