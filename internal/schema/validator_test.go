package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleContext = `apiVersion: v1
kind: Config
clusters:
- name: prod
  cluster:
    server: https://prod.example.com:6443
users:
- name: prod
  user:
    token: abc
contexts:
- name: prod
  context:
    cluster: prod
    user: prod
current-context: prod
`

func TestValidateKubeConfig(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "Single context", doc: singleContext},
		{
			name: "Exec user with args",
			doc: `contexts:
- name: a
  context: {cluster: c, user: u}
users:
- name: u
  user:
    exec:
      command: kubectl
      args: [oidc-login, get-token]
`,
		},
		{name: "No contexts", doc: "clusters: []\nusers: []\n", wantErr: true},
		{name: "Empty contexts", doc: "contexts: []\n", wantErr: true},
		{name: "Context without user", doc: "contexts:\n- name: a\n  context: {cluster: c}\n", wantErr: true},
		{name: "Exec without command", doc: "contexts:\n- name: a\n  context: {cluster: c, user: u}\nusers:\n- name: u\n  user:\n    exec: {args: [x]}\n", wantErr: true},
		{name: "Not a mapping", doc: "- just\n- a list\n", wantErr: true},
		{name: "Empty document", doc: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateKubeConfig([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNormalized(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.ValidateNormalized([]byte(singleContext)))

	twoClusters := `apiVersion: v1
kind: Config
clusters:
- name: prod
  cluster: {server: https://a}
- name: other
  cluster: {server: https://b}
users:
- name: prod
  user: {token: abc}
contexts:
- name: prod
  context: {cluster: prod, user: prod}
current-context: prod
`
	assert.Error(t, v.ValidateNormalized([]byte(twoClusters)))

	noCurrent := `apiVersion: v1
kind: Config
clusters:
- name: prod
  cluster: {server: https://a}
users:
- name: prod
  user: {token: abc}
contexts:
- name: prod
  context: {cluster: prod, user: prod}
`
	assert.Error(t, v.ValidateNormalized([]byte(noCurrent)))
}

func TestDecode(t *testing.T) {
	doc, err := decode([]byte("preferences:\n  colors: true\nextensions:\n- {name: retries, extension: {count: 3}}\n"))
	require.NoError(t, err)

	root, ok := doc.(map[string]interface{})
	require.True(t, ok)
	ext := root["extensions"].([]interface{})[0].(map[string]interface{})["extension"].(map[string]interface{})
	assert.Equal(t, json.Number("3"), ext["count"])
	assert.Equal(t, true, root["preferences"].(map[string]interface{})["colors"])

	_, err = decode([]byte("clusters: [unterminated"))
	assert.Error(t, err)
}

func TestValidateKubeConfigWithNumericFields(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	doc := singleContext + "extensions:\n- name: retries\n  extension:\n    count: 3\n"
	assert.NoError(t, v.ValidateKubeConfig([]byte(doc)))
	assert.NoError(t, v.ValidateNormalized([]byte(doc)))
}
