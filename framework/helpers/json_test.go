package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsJSON(t *testing.T) {
	assert.Equal(t, []byte(`{"a":1}`), AsJSON(map[string]int{"a": 1}))
	assert.Equal(t, []byte(`"x"`), AsJSON("x"))
}

func TestCanonicalizedRawJSON(t *testing.T) {
	assert.Equal(t, `{"a":[1,{"x":true,"y":null}],"b":"c"}`,
		CanonicalizedRawJSON([]byte(`{"b": "c", "a": [1, {"y": null, "x": true}]}`)))
	assert.Equal(t, `"plain"`, CanonicalizedRawJSON([]byte(`"plain"`)))
	assert.Equal(t, `not json`, CanonicalizedRawJSON([]byte(`not json`)))
}
