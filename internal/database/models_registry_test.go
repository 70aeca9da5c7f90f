package database

import (
	"testing"

	modelspkg "blogicum/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesBlogEntities(t *testing.T) {
	var post, comment, revoked, ledger bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.Post:
			post = true
		case *modelspkg.Comment:
			comment = true
		case *modelspkg.RevokedSession:
			revoked = true
		case *schemaMigration:
			ledger = true
		}
	}
	require.True(t, post, "PersistentModels should include Post")
	require.True(t, comment, "PersistentModels should include Comment")
	require.True(t, revoked, "PersistentModels should include RevokedSession")
	require.True(t, ledger, "PersistentModels should include the migrations ledger")
}
