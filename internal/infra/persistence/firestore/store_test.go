package firestore

import (
	"testing"

	"agency/internal/domain/repository"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
)

func TestToFirestoreData_ReplacesServerTimestamp(t *testing.T) {
	in := map[string]any{
		"title":     "Launch",
		"createdAt": repository.ServerTimestamp,
		"fields": map[string]any{
			"reviewedAt": repository.ServerTimestamp,
			"budget":     1200,
		},
	}

	out := toFirestoreData(in)

	assert.Equal(t, "Launch", out["title"])
	assert.Equal(t, firestore.ServerTimestamp, out["createdAt"])
	nested, ok := out["fields"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, firestore.ServerTimestamp, nested["reviewedAt"])
	assert.Equal(t, 1200, nested["budget"])
	assert.Equal(t, repository.ServerTimestamp, in["createdAt"], "input must not be modified")
}
